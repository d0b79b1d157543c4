package config

import (
	"fmt"
	"os"
	"strings"
)

func Template(kind string) (string, error) {
	switch strings.ToLower(strings.TrimSpace(kind)) {
	case "server", "nfhs":
		return serverTemplate, nil
	case "client", "nfhc":
		return clientTemplate, nil
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

const serverTemplate = `host = ""
port = 3789
dir = "."
# 0 serves until interrupted
max_sessions = 0
chunk_size = 4194304
max_list_entries = 4096

# admin HTTP surface; leave admin_addr empty to disable
admin_addr = "127.0.0.1:3790"
admin_token = ""
cors_origins = ["http://localhost:3000"]
`

const clientTemplate = `# empty prompts when interactive, otherwise 127.0.0.1
host = ""
port = 3789
# "upload" | "download"; empty prompts
mode = ""
file = ""
name = ""
# -1 prompts for a listing id
selection = -1
save_as = ""
overwrite = false
interactive = true
chunk_size = 4194304
max_list_entries = 4096
`
