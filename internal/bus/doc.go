// Package bus fans circuit-engine updates out to any number of consumers.
//
// The Hub is the single shared surface between unrelated call sites:
// pipelines publish, UI widgets and external state containers subscribe,
// and nobody holds a reference to anybody else. Delivery is synchronous
// and ordered; a panicking subscriber cannot break fan-out to the rest.
//
// Two delivery transports sit behind one interface. In a desktop shell the
// hub alone suffices: its registry is the native event bus and the Bubble
// Tea program is just another subscriber. In a browser-facing or remote
// deployment the RedisTransport republishes every event on a push channel
// and relays remote events back in, with origin ids preventing a process
// from reconsuming its own output. The Hub and the engine depend only on
// the Transport interface, never on which one is active.
package bus
