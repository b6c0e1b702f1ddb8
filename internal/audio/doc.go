// Package audio holds decoded mono PCM buffers and the loudness and silence
// analysis the segmenter and trimmer are built on.
//
// Silence detection slides a window of the minimum silence length across the
// buffer one millisecond at a time and merges qualifying window starts into
// intervals. Window energy comes from prefix sums of squared samples so each
// step is constant time regardless of the window length.
package audio
