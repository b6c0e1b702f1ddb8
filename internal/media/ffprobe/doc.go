// Package ffprobe runs ffprobe and decodes the stream and format fields
// drillcut needs.
//
// The audio decoder calls Inspect before transcoding and uses PrimaryAudio
// to reject files that carry no audio stream.
package ffprobe
