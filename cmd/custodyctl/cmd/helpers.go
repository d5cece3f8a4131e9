package cmd

import (
	"encoding/json"
	"fmt"
)

// dumpJSON prints a value as indented JSON.
func dumpJSON(v interface{}) error {
	b, err := json.MarshalIndent(v, "", "    ")
	if err != nil {
		return err
	}

	fmt.Printf("%s\n", b)
	return nil
}
