// Exceller turns JSON records into new JSON documents described by
// declarative schemas.
//
// Usage:
//
//	# Transform one record
//	exceller run --schema schemas/invoice.yaml --input record.json
//
//	# Check schema files
//	exceller validate schemas/
//
//	# Serve every schema under schemas.path over HTTP
//	exceller serve --config exceller.yaml
//
//	# Inspect recorded runs
//	exceller history query --status error --limit 20
package main

func main() {
	Execute()
}
