/*
Package events records what a Burrow run did, in the order it did it.

A Recorder is created per run and passed by pointer to the state resolver, the
simulated operator and the command engines. Every existence query and every
mutation becomes one Event with a monotonically increasing Seq. The report and
the run history are both rendered from the recorder once the run ends.

# Architecture

	┌──────────── EXECUTION LOG ─────────────┐
	│                                         │
	│  resolver / dry-run operator            │
	│        │ RecordExists                   │
	│        ▼                                │
	│  ┌──────────┐  Attach   ┌──────────┐    │
	│  │ Recorder │ ────────► │  Broker  │    │
	│  └──────────┘           └────┬─────┘    │
	│        ▲                     │          │
	│        │ Record              ▼          │
	│  up / down engines     Subscribers      │
	│                        (CLI progress)   │
	└─────────────────────────────────────────┘

The broker is optional. Its delivery is asynchronous and lossy for slow
subscribers; the recorder itself never drops an event.

# Usage

	rec := events.NewRecorder()
	rec.RecordExists(events.KindVolume, "data", false)
	rec.Record(events.KindVolume, events.ActionCreated, "data", "")

	for _, e := range rec.Mutations() {
		fmt.Println(e)
	}
*/
package events
