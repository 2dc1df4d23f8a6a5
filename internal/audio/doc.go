// Package audio handles normalization of uploaded audio for speech recognition.
// It drives ffmpeg to produce mono 16 kHz LINEAR16 WAV files and inspects RIFF/WAVE
// headers to verify the converted output.
package audio
