// Package devserver is an in-memory implementation of the vpnapp backend
// contract, for local development and tests.
//
// It mirrors the production API surface (register, login, profile, catalog,
// subscription upgrade) including its error payload shape: failures carry a
// JSON body with a "detail" message. State lives in memory and resets on
// restart; this is a stand-in, not a production service.
package devserver
