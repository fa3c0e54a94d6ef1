package main

import (
	"go.lsp.dev/protocol"
	lspuri "go.lsp.dev/uri"
)

// pathToURI and uriToPath are the transport's boundary between the VFS's
// plain paths and the wire's protocol.DocumentURI. Grounded on
// bufbuild-buf/private/buf/buflsp/uri.go's FilePathToURI, simplified: that
// file additionally normalizes '@'/':' encoding and lowercases Windows drive
// letters to match vscode-uri byte-for-byte, a mismatch this server never
// hits since every URI it produces is immediately round-tripped through the
// same lspuri.File/.Filename() pair rather than compared against a second
// independently-constructed URI.
func pathToURI(path string) protocol.DocumentURI {
	return protocol.DocumentURI(lspuri.File(path))
}

func uriToPath(uri protocol.DocumentURI) string {
	return uri.Filename()
}
