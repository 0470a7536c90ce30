package logx

import (
	"regexp"
)

type SensitiveDataMaskerInterface interface {
	Mask(input []byte) []byte
}

// A bidder's ceiling is private to the bidder, so request and response dumps
// must never carry it into shared logs.
//
//nolint:gochecknoglobals
var sensitiveDataPatterns = []*regexp.Regexp{
	regexp.MustCompile("(?s)(Authorization: Bearer ).+?(\r)"),
	regexp.MustCompile(`("maxAmount":\s?)-?[0-9.]+()`),
	regexp.MustCompile(`("maxAmount":\s?)"[^"]*"()`),
	regexp.MustCompile(`("email":\s?)"[^"]*"()`),
}

type SensitiveDataMasker struct{}

func NewSensitiveDataMasker() SensitiveDataMasker {
	return SensitiveDataMasker{}
}

func (s SensitiveDataMasker) Mask(input []byte) []byte {
	for _, pattern := range sensitiveDataPatterns {
		input = pattern.ReplaceAll(input, []byte(`${1}"[MASKED]"${2}`))
	}

	return input
}
