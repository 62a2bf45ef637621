package ckv

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

// parseValue interprets a command-line value argument as JSON if
// possible (so numbers, booleans, objects and arrays round-trip
// correctly), falling back to the raw string otherwise.
func parseValue(raw string) any {
	var v any
	if err := json.Unmarshal([]byte(raw), &v); err == nil {
		return v
	}
	return raw
}

// parsePath splits a comma-separated path argument ("a,b,c") into its
// components. An empty argument yields an empty path.
func parsePath(raw string) []string {
	if raw == "" {
		return nil
	}
	return strings.Split(raw, ",")
}

var (
	setCmd = &cobra.Command{
		Use:   "set [key] [value]",
		Short: "Sets the value for a key",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := rpcClient.Set(args[0], parseValue(args[1])); err != nil {
				return err
			}
			fmt.Println("set successfully")
			return nil
		},
	}
	getCmd = &cobra.Command{
		Use:   "get [key]",
		Short: "Reads the value for a key",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			value, found, err := rpcClient.Get(args[0])
			if err != nil {
				return err
			}
			fmt.Printf("key=%s, found=%v, value=%v\n", args[0], found, value)
			return nil
		},
	}
	removeCmd = &cobra.Command{
		Use:   "remove [key]",
		Short: "Removes a key",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := rpcClient.Remove(args[0]); err != nil {
				return err
			}
			fmt.Println("removed successfully")
			return nil
		},
	}
	findKeysCmd = &cobra.Command{
		Use:   "findKeys [pattern] [notPattern]",
		Short: "Lists keys matching pattern, excluding those matching notPattern",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			notPattern := ""
			if len(args) == 2 {
				notPattern = args[1]
			}
			keys, err := rpcClient.FindKeys(args[0], notPattern)
			if err != nil {
				return err
			}
			for _, k := range keys {
				fmt.Println(k)
			}
			fmt.Printf("%d key(s)\n", len(keys))
			return nil
		},
	}
	getSubCmd = &cobra.Command{
		Use:   "getSub [key] [path]",
		Short: "Reads the value at a sub-path within a key (path is comma-separated)",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			value, found, err := rpcClient.GetSub(args[0], parsePath(args[1]))
			if err != nil {
				return err
			}
			fmt.Printf("key=%s, path=%s, found=%v, value=%v\n", args[0], args[1], found, value)
			return nil
		},
	}
	setSubCmd = &cobra.Command{
		Use:   "setSub [key] [path] [value]",
		Short: "Sets the value at a sub-path within a key (path is comma-separated)",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := rpcClient.SetSub(args[0], parsePath(args[1]), parseValue(args[2])); err != nil {
				return err
			}
			fmt.Println("setSub successfully")
			return nil
		},
	}
)
