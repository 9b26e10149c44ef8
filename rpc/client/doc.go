// Package client implements the wirekv client as a command actor.
//
// A single Connection cannot be shared by concurrent callers: its
// read/write sequencing is stateful and it has no internal locking.
// Instead, one actor goroutine exclusively owns the Connection and
// receives (command, reply channel) pairs from a bounded FIFO queue.
// For each pair it writes the request frame, awaits the response frame
// and delivers the result through the pair's reply channel exactly once.
//
// Callers obtain concurrency by enqueueing requests and awaiting their
// own private reply; the queue capacity bounds how many requests may be
// in flight before senders block, which is the client's backpressure.
// A caller that goes away (cancelled context) simply abandons its reply
// channel - every reply channel has capacity one, so the actor never
// blocks or crashes on delivery.
package client
