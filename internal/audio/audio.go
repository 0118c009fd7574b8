// Package audio plays the access cues.
// Clips are decoded once at startup and reused for every playback.
package audio

// Clip identifies one of the pre-loaded cues.
type Clip string

const (
	ClipGranted Clip = "GRANTED"
	ClipDenied  Clip = "DENIED"
)

// Player starts playback of a clip without waiting for it to finish.
type Player interface {
	// Play starts the clip and returns immediately.
	Play(clip Clip) error

	// Close stops playback and releases the audio device.
	Close() error
}
