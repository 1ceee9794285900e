// Package connectors holds clients for remote BI content servers.
// Each client implements driven.ContentServer for one server product.
package connectors
