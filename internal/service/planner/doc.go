// Package planner builds the in-memory Plan of one invocation: which targets
// are requested and what upstream currently offers for each of them.
package planner
