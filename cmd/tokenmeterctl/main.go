// tokenmeterctl administers a tokenmeter store without the HTTP server.
//
// Usage:
//
//	# Reset every caller's daily counter
//	tokenmeterctl reset daily
//
//	# Show one caller's usage against the configured limits
//	tokenmeterctl usage get user-42
//
//	# Write limits, API key and provider overlay from a settings document
//	tokenmeterctl settings apply config/settings.local.yaml
//
// The store is selected by the same YAML config the server reads: --config
// names a file, otherwise config/<ENV>.yaml is used.
package main

func main() {
	Execute()
}
