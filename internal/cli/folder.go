package cli

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
)

// NewListCmd — содержимое папки.
func NewListCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	return &cobra.Command{
		Use:   "ls [FOLDER_ID]",
		Short: "List folder contents (default: root)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			var folderID *int64
			if len(args) == 1 {
				id, err := parseFolderFlag(args[0])
				if err != nil {
					return err
				}
				folderID = id
			}

			contents, err := client.Contents(folderID)
			if err != nil {
				return err
			}

			out.Success(breadcrumbPath(contents.Breadcrumbs))

			rows := make([][]string, 0, len(contents.Folders)+len(contents.Files))
			for _, f := range contents.Folders {
				rows = append(rows, []string{"dir", strconv.FormatInt(f.ID, 10), f.Name + "/", "", f.CreatedAt})
			}
			for _, f := range contents.Files {
				row := fileRow(f)
				name := row[1]
				if !f.Uploaded {
					name += " (uploading)"
				}
				rows = append(rows, []string{"file", row[0], name, row[2], row[4]})
			}

			out.Print([]string{"TYPE", "ID", "NAME", "SIZE", "CREATED"}, rows, contents)
			return nil
		},
	}
}

func breadcrumbPath(crumbs []FolderResponse) string {
	names := make([]string, len(crumbs))
	for i, c := range crumbs {
		names[i] = c.Name
	}
	return "/" + strings.Join(names, "/")
}

// NewMkdirCmd — создание папки.
func NewMkdirCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	var parent string

	cmd := &cobra.Command{
		Use:   "mkdir NAME",
		Short: "Create a folder",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			parentID, err := parseFolderFlag(parent)
			if err != nil {
				return err
			}

			folder, err := client.CreateFolder(CreateFolderRequest{Name: args[0], ParentID: parentID})
			if err != nil {
				return err
			}

			out.Success(fmt.Sprintf("Folder created: %d", folder.ID))
			out.Print(
				[]string{"ID", "NAME", "CREATED"},
				[][]string{{strconv.FormatInt(folder.ID, 10), folder.Name, folder.CreatedAt}},
				folder,
			)
			return nil
		},
	}

	cmd.Flags().StringVar(&parent, "parent", "", "Parent folder ID (default: root)")

	return cmd
}
