// Package messaging publishes and consumes domain events over a pluggable
// broker.
//
// Use cases depend on Publisher and consumers on Consumer. The concrete
// driver (NATS, Kafka, NSQ, Google Pub/Sub or the in-process Memory broker)
// is chosen at startup through NewFromDriver.
package messaging
