package main

// General API documentation for swaggo. The served document is kept in
// internal/httpapi/swagger.go (build with -tags=swagger).
//
// @title           sttd API
// @version         1.0
// @description     Control API for the local speech-to-text runtime.
//
// @license.name   MIT
// @license.url    https://opensource.org/licenses/MIT
//
// @BasePath  /
//
// @schemes http
