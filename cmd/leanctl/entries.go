package main

import (
	"fmt"
	"net/url"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

func init() {
	entriesCmd := &cobra.Command{Use: "entries", Short: "Entry operations"}

	createCmd := &cobra.Command{
		Use:   "create CONTENT...",
		Short: "Create a journal entry",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := requireUser(); err != nil {
				return err
			}
			data, err := doPostJSON(
				fmt.Sprintf("%s/api/users/%s/entries", apiFlag, userFlag),
				map[string]string{"content": strings.Join(args, " ")},
			)
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintln(os.Stdout, string(data))
			return nil
		},
	}
	entriesCmd.AddCommand(createCmd)

	var search, tag string
	var limit int
	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List entries, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := requireUser(); err != nil {
				return err
			}
			q := url.Values{}
			if search != "" {
				q.Set("search", search)
			}
			if tag != "" {
				q.Set("tag", tag)
			}
			if limit > 0 {
				q.Set("limit", fmt.Sprint(limit))
			}
			u := fmt.Sprintf("%s/api/users/%s/entries", apiFlag, userFlag)
			if enc := q.Encode(); enc != "" {
				u += "?" + enc
			}
			data, err := doGet(u)
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintln(os.Stdout, string(data))
			return nil
		},
	}
	listCmd.Flags().StringVarP(&search, "search", "s", "", "Filter by content or tag text")
	listCmd.Flags().StringVarP(&tag, "tag", "t", "", "Filter by exact hashtag")
	listCmd.Flags().IntVarP(&limit, "limit", "l", 0, "Maximum entries to return")
	entriesCmd.AddCommand(listCmd)

	deleteCmd := &cobra.Command{
		Use:   "delete ENTRY_ID",
		Short: "Soft-delete an entry",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := requireUser(); err != nil {
				return err
			}
			return doDelete(fmt.Sprintf("%s/api/users/%s/entries/%s", apiFlag, userFlag, args[0]))
		},
	}
	entriesCmd.AddCommand(deleteCmd)

	var after, before, exportTag string
	exportCmd := &cobra.Command{
		Use:   "export",
		Short: "Export the journal as markdown",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := requireUser(); err != nil {
				return err
			}
			q := url.Values{}
			if after != "" {
				q.Set("after", after)
			}
			if before != "" {
				q.Set("before", before)
			}
			if exportTag != "" {
				q.Set("tag", exportTag)
			}
			u := fmt.Sprintf("%s/api/users/%s/export", apiFlag, userFlag)
			if enc := q.Encode(); enc != "" {
				u += "?" + enc
			}
			data, err := doGet(u)
			if err != nil {
				return err
			}
			_, _ = os.Stdout.Write(data)
			return nil
		},
	}
	exportCmd.Flags().StringVar(&after, "after", "", "Only entries on or after this date (YYYY-MM-DD)")
	exportCmd.Flags().StringVar(&before, "before", "", "Only entries before this date (YYYY-MM-DD)")
	exportCmd.Flags().StringVar(&exportTag, "tag", "", "Only entries carrying this hashtag")
	entriesCmd.AddCommand(exportCmd)

	rootCmd.AddCommand(entriesCmd)
}
