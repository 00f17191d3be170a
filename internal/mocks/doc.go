package mocks

//go:generate mockgen -destination=mock_listener.go -package=mocks net Listener
