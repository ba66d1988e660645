// Corelate - Item Similarity Analytics for Rating Logs
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/corelate

// Package ingest implements event-driven rating ingestion over NATS
// JetStream.
//
// Rating events enter the system through the HTTP API or external
// publishers, flow through the RATINGS stream, and end up as rows in the
// DuckDB ratings table:
//
//	Publisher -> JetStream (ratings.<source>) -> Subscriber -> Consumer -> Appender -> DuckDB
//
// Components:
//   - EmbeddedServer: an in-process NATS server with JetStream, for
//     single-binary deployments. External servers work too; the pipeline
//     only needs a URL.
//   - StreamManager: creates or updates the RATINGS stream (file storage,
//     age-based retention, duplicate window).
//   - Publisher: Watermill JetStream publisher with reconnect handling and
//     optional circuit breaker. Sets Nats-Msg-Id so the stream's duplicate
//     window drops republished events.
//   - Subscriber: durable Watermill queue subscriber. Redelivery resumes
//     from the durable consumer after restarts.
//   - Consumer: deserializes, validates, and deduplicates events, then
//     hands them to the Appender. Malformed events are acked and counted
//     as rejected so they do not redeliver forever.
//   - Appender: batches events and flushes them to the database when the
//     batch fills or the flush interval elapses, behind a circuit breaker
//     and a flush-rate limiter.
//
// Pipeline ties the components together with ordered startup and
// shutdown. Everything is gated at runtime by nats.enabled; when ingest
// is disabled the HTTP API writes ratings directly to the database.
//
// Delivery is at-least-once end to end. Three layers absorb duplicates:
// the stream duplicate window (by Nats-Msg-Id), the consumer's TTL'd LRU
// cache (by event ID), and the ratings table primary key.
package ingest
