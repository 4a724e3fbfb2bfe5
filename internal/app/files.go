package app

import (
	"context"
	"fmt"

	"scrapedesk/internal/preview"
	"scrapedesk/pkg/api"
)

// ExportResults writes the results of one job to an export file.
func (a *App) ExportResults(ctx context.Context, req api.ExportRequest) (string, error) {
	done, err := a.begin(true)
	if err != nil {
		return "", err
	}
	defer done()

	path, err := a.gw.ExportJobResults(ctx, req)
	if err != nil {
		a.fail(api.CmdExportJobResults, "Export failed: ", err)
		return "", err
	}

	a.notifier.Success("Results exported to: " + path)
	if a.Tab() == TabFiles {
		a.reloadFiles(ctx)
	}
	return path, nil
}

// ExportIndividualResult writes a single result to an export file.
func (a *App) ExportIndividualResult(ctx context.Context, req api.IndividualExportRequest) (string, error) {
	done, err := a.begin(true)
	if err != nil {
		return "", err
	}
	defer done()

	path, err := a.gw.ExportIndividualResult(ctx, req)
	if err != nil {
		a.fail(api.CmdExportIndividualResult, "Individual export failed: ", err)
		return "", err
	}

	a.notifier.Success("Individual result exported to: " + path)
	if a.Tab() == TabFiles {
		a.reloadFiles(ctx)
	}
	return path, nil
}

// LoadExportFiles refreshes the export directory listing.
func (a *App) LoadExportFiles(ctx context.Context) error {
	done, err := a.begin(false)
	if err != nil {
		return err
	}
	defer done()
	return a.reloadFiles(ctx)
}

// SelectFile focuses an export file and renders its content. A file that
// cannot be read leaves the selection in place with an empty preview.
func (a *App) SelectFile(ctx context.Context, path string) error {
	f, ok := a.store.File(path)
	if !ok {
		f = api.ExportFileInfo{Path: path}
	}

	done, err := a.begin(false)
	if err != nil {
		return err
	}
	defer done()

	a.mu.Lock()
	a.selectedFile = &f
	a.mu.Unlock()
	a.emit(Event{Kind: SelectionChanged})

	body, err := a.store.FileContent(ctx, path)
	if err != nil {
		a.setView(nil)
		a.fail(api.CmdReadExportFile, "Failed to read file: ", err)
		return err
	}

	view := a.renderer.Render(preview.ParseFileType(f.FileType), body)
	a.setView(&view)
	return nil
}

// OpenExportDirectory asks the backend to reveal the export directory.
func (a *App) OpenExportDirectory(ctx context.Context) error {
	if err := a.gw.OpenExportDirectory(ctx); err != nil {
		a.fail(api.CmdOpenExportDirectory, "Failed to open directory: ", err)
		return err
	}
	a.notifier.Info("Export directory opened")
	return nil
}

// DeleteFile removes an export file after confirmation.
func (a *App) DeleteFile(ctx context.Context, path string) error {
	name := path
	if f, ok := a.store.File(path); ok && f.Name != "" {
		name = f.Name
	}
	if !a.confirmer.Confirm(fmt.Sprintf("Are you sure you want to delete %s?", name)) {
		return ErrCancelled
	}

	done, err := a.begin(true)
	if err != nil {
		return err
	}
	defer done()

	if err := a.gw.DeleteExportFile(ctx, path); err != nil {
		a.fail(api.CmdDeleteExportFile, "Failed to delete file: ", err)
		return err
	}

	a.notifier.Success("File deleted successfully")
	a.store.ForgetFile(path)
	a.reloadFiles(ctx)

	a.mu.Lock()
	wasSelected := a.selectedFile != nil && a.selectedFile.Path == path
	if wasSelected {
		a.selectedFile = nil
	}
	a.mu.Unlock()
	if wasSelected {
		a.emit(Event{Kind: SelectionChanged})
		a.setView(nil)
	}
	return nil
}

func (a *App) reloadFiles(ctx context.Context) error {
	if err := a.store.ReloadFiles(ctx); err != nil {
		a.fail(api.CmdListExportFiles, "Failed to load export files: ", err)
		return err
	}
	a.emit(Event{Kind: FilesChanged})
	return nil
}

func (a *App) setView(v *preview.View) {
	a.mu.Lock()
	a.view = v
	a.mu.Unlock()
	a.emit(Event{Kind: PreviewChanged})
}
