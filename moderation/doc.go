// Package moderation implements the gate that screens user input before any
// retrieval or synthesis work happens.
//
// A Policy is an ordered list of categories, each a set of case-insensitive
// regular expressions with a block flag and a user-facing refusal message.
// Gate.Check is pure and synchronous. Flagged input is written to the audit
// log as a BLAKE2b hash plus category, never as plaintext.
//
// Policies can be loaded from YAML and hot-reloaded with a Watcher:
//
//	gate, _ := moderation.NewGate()
//	w, err := moderation.NewWatcher(gate, "policy.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	go w.Run(ctx)
package moderation
