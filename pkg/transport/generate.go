package transport

//go:generate mockgen -destination=mock/mock_transport.go -package=mock . Transport
