// Package numeric encodes integers and floats the way an introductory
// computer-organization course derives them by hand: two's complement,
// signed magnitude, IEEE-754 single/double precision and positional base
// conversion. Every encoder records its derivation with sim/trace.
package numeric
