// Command relaysrv implements text relay server over TCP.
//
// Every text line a client sends is relayed to all other connected clients,
// prefixed with the sender label.
//
// To compile the server locally, run from package directory:
//
//	go install .
//
// Or quickly launch server with command:
//
//	go run . -ip 127.0.0.1 -port 8080
//
// Any option may also be set through environment or a .env file in the
// working directory, see Config for the variable names.
package main
