// Package ffprobe reads duration and frame size from video files by running
// the ffprobe binary. Asset registration uses it so cost estimates do not
// depend on the user typing the duration.
package ffprobe
