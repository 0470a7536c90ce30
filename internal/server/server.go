package server

// Server объединяет HTTP-обработчики отдельных сущностей: ставки и
// администрирование аукционов.
type Server struct {
	BidServer
	AdminServer
}

func NewServer(
	bidServer BidServer,
	adminServer AdminServer,
) Server {
	return Server{
		BidServer:   bidServer,
		AdminServer: adminServer,
	}
}
