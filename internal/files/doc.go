// Package files locates pipeline input datasets on disk.
//
// Discovery lists the tabular files (CSV and XLSX) in a directory, skipping
// subdirectories and editor lock files such as "~$book.xlsx". When the
// configured input is a directory the pipeline loads the most recently
// modified dataset in it:
//
//	discovery := files.NewDiscovery(paths.DataDir)
//	path, err := discovery.ResolveInput("exports")
package files
