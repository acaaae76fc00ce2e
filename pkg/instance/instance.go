package instance

import "os"

var idEnvKeys = []string{"CARTLIMITS_INSTANCE_ID", "DYNO", "K_REVISION", "HOSTNAME"}

// GetID returns the process instance identifier, falling back to "<role>-0".
func GetID(role string) string {
	for _, key := range idEnvKeys {
		if id := os.Getenv(key); id != "" {
			return id
		}
	}
	if role == "" {
		role = "local"
	}
	return role + "-0"
}
