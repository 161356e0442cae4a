package config

import "github.com/danmuck/pxcanvas/internal/canvas"

// OwnerConfig projects the intake and write settings for the canvas owner.
func (c ServerConfig) OwnerConfig() canvas.OwnerConfig {
	return canvas.OwnerConfig{
		QueueDepth:   c.QueueDepth,
		WriteTimeout: c.WriteTimeout,
	}
}
