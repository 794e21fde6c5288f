package homedir

import (
	"os"
	"os/user"
)

// Get returns the current user's home directory.
func Get() string {
	if h, err := os.UserHomeDir(); err == nil && h != "" {
		return h
	}

	usr, err := user.Current()
	if err != nil {
		panic(err)
	}
	return usr.HomeDir
}
