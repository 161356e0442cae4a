package config

import (
	"fmt"
	"os"
	"strings"
)

func Template(kind string) (string, error) {
	switch strings.ToLower(strings.TrimSpace(kind)) {
	case "server", "pxcanvasd":
		return serverTemplate, nil
	default:
		return "", fmt.Errorf("unknown config kind: %s", kind)
	}
}

func WriteTemplate(path, kind string, overwrite bool) error {
	template, err := Template(kind)
	if err != nil {
		return err
	}
	if !overwrite {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("config already exists: %s", path)
		}
	}
	return os.WriteFile(path, []byte(template), 0o600)
}

const serverTemplate = `name = "pxcanvas"
addr = ":1337"
width = 800
height = 600
queue_depth = 32
max_line_bytes = 1024
# "0s" keeps idle connections open until the client sends a line.
read_timeout = "0s"
write_timeout = "2s"
heartbeat_interval = "30s"
# Empty disables the admin HTTP endpoint.
admin_addr = "127.0.0.1:9337"
cors_origins = ["http://localhost:3000"]
`
