// Package testing provides testing utilities for kew clients.
//
// # Mocks
//
// The mocks subpackage provides testify-based doubles for the pipeline's
// seams:
//   - http.Client for services built on the request pipeline
//   - net/http.RoundTripper for driving status sequences without a server
//   - http.Sleeper and netstatus.Prober for deterministic retry and probe tests
//
// # Fixtures
//
// The fixtures subpackage starts the development inference server under
// httptest and returns resolvers and client builders aimed at it, plus canned
// chat payloads.
//
// # Usage
//
//	import (
//		"github.com/WikipediaBrown/Kew-Developer/testing/mocks"
//		"github.com/WikipediaBrown/Kew-Developer/testing/fixtures"
//	)
package testing
