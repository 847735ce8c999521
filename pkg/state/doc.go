/*
Package state holds the snapshot of the runtime that the command engines
plan against.

Every resource identity maps to Exists, Missing or Unknown. Unknown is the
conservative answer: an Unknown container is removed before it is run again,
an Unknown image is pulled. A pure dry run plans against Empty(), where
everything is Unknown.

	┌──────────┐  *Exists  ┌───────────┐  Build  ┌────────────┐
	│ Resolver │ ────────► │  Builder  │ ──────► │ StackState │
	└──────────┘           └───────────┘         └────────────┘
	  networks → volumes → images (deduplicated) → containers
*/
package state
