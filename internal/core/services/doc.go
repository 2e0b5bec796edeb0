// Package services implements the driving port interfaces.
// Services contain the core business logic: the ingestion pipeline, the
// hybrid retrieval and re-ranking passes, and grounded generation. They
// orchestrate calls to driven ports (adapters) and are pure Go with no
// CGO or provider SDKs.
package services
