package main

// General API documentation for swaggo. Regenerate with `swag init -g cmd/predictd/docs.go`.
//
// @title           predictd API
// @version         1.0
// @description     HTTP prediction endpoints for trained model bundles and hosted models.
//
// @contact.name   predictd maintainers
//
// @license.name   MIT
// @license.url    https://opensource.org/licenses/MIT
//
// @BasePath  /
//
// @schemes http
