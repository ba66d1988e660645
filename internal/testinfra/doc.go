// Corelate - Item Similarity Analytics for Rating Logs
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/corelate

// Package testinfra provides test infrastructure for integration testing with containers.
//
// This package uses testcontainers-go to manage Docker containers for integration tests,
// providing realistic testing environments that closely match production.
//
// # NATS Container
//
// The NATSContainer provides a real NATS server with JetStream for testing the
// ingest pipeline in external-server mode:
//
//	func TestPipelineAgainstExternalNATS(t *testing.T) {
//	    ctx := context.Background()
//	    nats, err := testinfra.NewNATSContainer(ctx)
//	    if err != nil {
//	        t.Fatal(err)
//	    }
//	    defer nats.Terminate(ctx)
//
//	    cfg := config.NATSConfig{
//	        Enabled:        true,
//	        EmbeddedServer: false,
//	        URL:            nats.URL,
//	        // ...
//	    }
//	    pipeline, err := ingest.NewPipeline(cfg, store)
//	    // Publish rating events, assert they land in the store
//	}
//
// # Benefits Over Mocks
//
// Using real containers provides several advantages:
//   - Tests validate actual JetStream semantics (durables, redelivery, acks)
//   - No mock drift (mocks getting out of sync with real behavior)
//   - Tests run against production-equivalent services
//
// All tests in this package carry the integration build tag; unit test runs
// never touch Docker.
//
// # CI Considerations
//
// These tests require Docker and network access. In CI:
//   - Self-hosted runners have Docker pre-installed
//   - Container images are cached between runs
//   - Tests are skipped gracefully if Docker is unavailable
//
// # Network Requirements
//
// First run may need to download container images. Subsequent runs use cached images.
package testinfra
