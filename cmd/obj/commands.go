package obj

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"github.com/taskforge/ostore/lib/objstore"
)

// parseIDs converts hex command line arguments into ObjectIDs
func parseIDs(args []string) ([]objstore.ObjectID, error) {
	ids := make([]objstore.ObjectID, len(args))
	for i, arg := range args {
		id, err := objstore.ObjectIDFromHex(arg)
		if err != nil {
			return nil, err
		}
		ids[i] = id
	}
	return ids, nil
}

var (
	putCmd = &cobra.Command{
		Use:   "put [value]",
		Short: "Stores a value as a new object and prints its id",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			// Use the given id or generate a fresh one
			var id objstore.ObjectID
			if hexID, _ := cmd.Flags().GetString("id"); hexID != "" {
				var err error
				if id, err = objstore.ObjectIDFromHex(hexID); err != nil {
					return err
				}
			} else {
				id = objstore.NewObjectID()
			}

			metadata, _ := cmd.Flags().GetString("metadata")
			var metaBytes []byte
			if metadata != "" {
				metaBytes = []byte(metadata)
			}

			obj := objstore.NewObject([]byte(args[0]), metaBytes, nil)
			stored, err := rpcStore.Put(obj, id)
			if err != nil {
				return err
			}
			fmt.Printf("id=%s, stored=%t\n", id, stored)
			return nil
		},
	}
	getCmd = &cobra.Command{
		Use:   "get [id]...",
		Short: "Fetches objects by id, blocking until enough are present",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ids, err := parseIDs(args)
			if err != nil {
				return err
			}

			num, _ := cmd.Flags().GetInt("num")
			if num == 0 {
				num = len(ids)
			}
			timeoutMs, _ := cmd.Flags().GetInt64("timeout-ms")
			remove, _ := cmd.Flags().GetBool("remove")

			results, err := rpcStore.Get(ids, num, time.Duration(timeoutMs)*time.Millisecond, remove)
			if err != nil {
				return err
			}

			for i, obj := range results {
				if obj == nil {
					fmt.Printf("id=%s, found=false\n", ids[i])
				} else if obj.IsError() {
					fmt.Printf("id=%s, found=true, error=%s\n", ids[i], obj.ErrorType())
				} else {
					fmt.Printf("id=%s, found=true, value=%s\n", ids[i], obj.Data())
				}
			}
			return nil
		},
	}
	waitCmd = &cobra.Command{
		Use:   "wait [id]...",
		Short: "Waits for objects to become present without fetching them",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ids, err := parseIDs(args)
			if err != nil {
				return err
			}

			num, _ := cmd.Flags().GetInt("num")
			if num == 0 {
				num = len(ids)
			}
			timeoutMs, _ := cmd.Flags().GetInt64("timeout-ms")

			ready, inFallback, err := rpcStore.Wait(ids, num, time.Duration(timeoutMs)*time.Millisecond)
			if err != nil {
				return err
			}

			for _, id := range ready {
				fmt.Printf("id=%s, ready\n", id)
			}
			for _, id := range inFallback {
				fmt.Printf("id=%s, in fallback store\n", id)
			}
			fmt.Printf("%d of %d ready\n", len(ready), len(ids))
			return nil
		},
	}
	delCmd = &cobra.Command{
		Use:   "del [id]...",
		Short: "Deletes objects, skipping fallback-resident entries",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ids, err := parseIDs(args)
			if err != nil {
				return err
			}

			skipped, err := rpcStore.Delete(ids)
			if err != nil {
				return err
			}
			if len(skipped) > 0 {
				for _, id := range skipped {
					fmt.Printf("id=%s skipped (payload in fallback store)\n", id)
				}
			}
			fmt.Println("delete successfully")
			return nil
		},
	}
	eraseCmd = &cobra.Command{
		Use:   "erase [id]...",
		Short: "Erases objects unconditionally",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ids, err := parseIDs(args)
			if err != nil {
				return err
			}

			if err := rpcStore.Erase(ids); err != nil {
				return err
			}
			fmt.Println("erase successfully")
			return nil
		},
	}
	hasCmd = &cobra.Command{
		Use:   "has [id]",
		Short: "Checks if an object exists",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := objstore.ObjectIDFromHex(args[0])
			if err != nil {
				return err
			}

			exists, inFallback, err := rpcStore.Contains(id)
			if err != nil {
				return err
			}
			fmt.Printf("id=%s, found=%t, inFallback=%t\n", id, exists, inFallback)
			return nil
		},
	}
	statsCmd = &cobra.Command{
		Use:   "stats",
		Short: "Prints the shard's object counters",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			stats, err := rpcStore.Stats()
			if err != nil {
				return err
			}
			fmt.Printf("objects=%d, inFallback=%d, bytes=%d\n",
				stats.NumLocalObjects, stats.NumInFallback, stats.NumLocalBytes)
			return nil
		},
	}
)

func init() {
	putCmd.Flags().String("id", "", "Hex id to store the object under (generated if omitted)")
	putCmd.Flags().String("metadata", "", "Optional metadata to attach to the object")

	getCmd.Flags().Int("num", 0, "How many of the ids must be present before returning (0 = all)")
	getCmd.Flags().Int64("timeout-ms", 5000, "Timeout in milliseconds (-1 = infinite, 0 = poll)")
	getCmd.Flags().Bool("remove", false, "Remove fetched objects from the store")

	waitCmd.Flags().Int("num", 0, "How many of the ids must be present before returning (0 = all)")
	waitCmd.Flags().Int64("timeout-ms", 5000, "Timeout in milliseconds (-1 = infinite, 0 = poll)")
}
