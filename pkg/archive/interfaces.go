package archive

// Extractor defines what an archive extractor should be able to do
type Extractor interface {
	ExtractArchive(archivePath, outputDir string, overwrite, deleteAfter bool) error
}
