// Package segment splits numbered drill recordings into word and phrase clips.
//
// A recording is read as a sequence of utterances separated by long pauses.
// Every vocabulary item occupies a fixed group of utterances; only the word
// and phrase positions of each complete group are kept. Kept segments are
// numbered globally from the recording index so labels never collide across
// recordings, then copied out of the source without re-encoding.
//
// Plan, Keep and LabelFor are pure and carry all of the boundary and
// numbering arithmetic. Stage wires them to discovery, decoding and the
// extraction collaborator.
package segment
