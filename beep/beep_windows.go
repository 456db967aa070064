//go:build windows

package beep

// No audio playback on Windows - chimes disabled.

func Init()        {}
func PlayReward()  {}
func PlayPenalty() {}
func PlayMode()    {}
