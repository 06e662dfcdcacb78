// Package convert implements the convert subcommand: it locates HTML
// documents in the input (file, directory or zip archive) and renders each of
// them into the requested output formats.
package convert

import (
	"archive/zip"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime/debug"
	"strings"
	"time"

	cli "github.com/urfave/cli/v3"
	"go.uber.org/zap"
	"golang.org/x/text/encoding/ianaindex"

	"forumfmt/archive"
	"forumfmt/common"
	"forumfmt/config"
	"forumfmt/content"
	"forumfmt/state"
	"forumfmt/style"
)

func Run(ctx context.Context, cmd *cli.Command) (err error) {
	if err := ctx.Err(); err != nil {
		return err
	}

	env := state.EnvFromContext(ctx)
	log := env.Log.Named("convert")

	src := cmd.Args().Get(0)
	if len(src) == 0 {
		return errors.New("no input source has been specified")
	}
	src, err = filepath.Abs(src)
	if err != nil {
		return err
	}

	dst := cmd.Args().Get(1)
	if len(dst) == 0 {
		if dst, err = os.Getwd(); err != nil {
			return fmt.Errorf("unable to get working directory: %w", err)
		}
	}
	if dst, err = filepath.Abs(dst); err != nil {
		return err
	}
	if cmd.Args().Len() > 2 {
		log.Warn("Mailformed command line, too many destinations", zap.Strings("ignoring", cmd.Args().Slice()[2:]))
	}

	env.Formats, err = common.ParseOutputFmts(cmd.String("to"))
	if err != nil {
		log.Warn("Unknown output format requested, switching to bbcode", zap.Error(err))
		env.Formats = []common.OutputFmt{common.OutputFmtBBCode}
	}

	// Processing phases come from configuration and may be switched on
	// individually from the command line.
	env.Filters = env.Cfg.Document.Filters
	if cmd.Bool("all-filters") {
		env.Filters.RegexMacro = true
		env.Filters.LinkCSS = true
		env.Filters.InlineCSS = true
		env.Filters.RemoveInvisible = true
	}
	if cmd.Bool("regex-macro") {
		env.Filters.RegexMacro = true
	}
	if cmd.Bool("link-css") {
		env.Filters.LinkCSS = true
	}
	if cmd.Bool("inline-css") {
		env.Filters.InlineCSS = true
	}
	if cmd.Bool("remove-invisible") {
		env.Filters.RemoveInvisible = true
	}

	// Tag defaults always come first in the cascade, a configured stylesheet
	// is appended to them so it can override per deployment.
	env.DefaultStyle = []byte(style.DefaultCSS)
	if env.Cfg.Document.StylesheetPath != "" {
		data, err := os.ReadFile(env.Cfg.Document.StylesheetPath)
		if err != nil {
			return fmt.Errorf("unable to read style css from %q: %w", env.Cfg.Document.StylesheetPath, err)
		}
		env.DefaultStyle = append(append(env.DefaultStyle, '\n'), data...)
	}

	env.NoDirs, env.Overwrite = cmd.Bool("nodirs"), cmd.Bool("overwrite")

	// Since zip "standard" does not define file name encoding we may need to
	// force archaic code page for old archives
	cp := cmd.String("force-zip-cp")
	if len(cp) > 0 {
		env.CodePage, err = ianaindex.IANA.Encoding(cp)
		if err != nil {
			log.Warn("Unknown character set specification. Ignoring...", zap.String("charset", cp), zap.Error(err))
			env.CodePage = nil
		} else {
			n, _ := ianaindex.IANA.Name(env.CodePage)
			log.Debug("Forcefully converting all non UTF-8 file names in archives", zap.String("charset", n))
		}
	}

	log.Info("Processing starting",
		zap.String("source", src), zap.String("destination", dst), zap.Stringers("formats", env.Formats))
	defer func(start time.Time) {
		log.Info("Processing completed", zap.Duration("elapsed", time.Since(start)))
	}(time.Now())

	return process(ctx, src, dst, log)
}

// process handles the core conversion logic independently of CLI framework. It
// determines the input type (directory, archive, or single file) and processes
// accordingly.
func process(ctx context.Context, src, dst string, log *zap.Logger) error {
	var head, tail string
	for head = src; len(head) != 0; head, tail = filepath.Split(head) {
		if err := ctx.Err(); err != nil {
			return err
		}

		head = strings.TrimSuffix(head, string(filepath.Separator))

		fi, err := os.Stat(head)
		if err != nil {
			// does not exists - probably path in archive
			continue
		}

		if fi.Mode().IsDir() {
			if len(tail) != 0 {
				// directory cannot have tail - it would be simple file
				return fmt.Errorf("input source was not found (%s) => (%s)", head, strings.TrimPrefix(src, head))
			}
			if err := processDir(ctx, head, dst, log); err != nil {
				return errors.New("unable to process directory")
			}
			break
		}

		if !fi.Mode().IsRegular() {
			return fmt.Errorf("unexpected path mode for (%s) => (%s)", head, strings.TrimPrefix(src, head))
		}

		arc, err := isArchiveFile(head)
		if err != nil {
			// checking format - but cannot open target file
			return fmt.Errorf("unable to check archive type: %w", err)
		}
		if arc {
			// we need to look inside to see if path makes sense
			tail = strings.TrimPrefix(strings.TrimPrefix(src, head), string(filepath.Separator))
			if err := processArchive(ctx, head, tail, "", dst, log); err != nil {
				return fmt.Errorf("unable to process archive: %w", err)
			}
			break
		}

		doc, err := isDocumentFile(head)
		if err != nil {
			// checking format - but cannot open target file
			return fmt.Errorf("unable to check file type: %w", err)
		}
		if doc && len(tail) == 0 {
			// we have a document, it cannot have tail
			if file, err := os.Open(head); err != nil {
				log.Error("Unable to process file", zap.String("file", head), zap.Error(err))
			} else {
				defer file.Close()
				if err := processDocument(ctx, file, filepath.Base(head), dst, log); err != nil {
					log.Error("Unable to process file", zap.String("file", head), zap.Error(err))
				}
			}
			break
		}
		return fmt.Errorf("input was not recognized as HTML document (%s)", head)

	}
	if len(head) == 0 {
		return fmt.Errorf("input source was not found (%s)", src)
	}
	return nil
}

// processDir walks directory tree finding html files and processes them.
func processDir(ctx context.Context, dir, dst string, log *zap.Logger) (err error) {
	count := 0
	defer func() {
		if err == nil && count == 0 {
			log.Debug("Nothing to process", zap.String("dir", dir))
		}
	}()

	err = filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err := ctx.Err(); err != nil {
			return err
		}

		if err != nil {
			log.Warn("Skipping path", zap.String("path", path), zap.Error(err))
			return nil
		}
		if !info.Mode().IsRegular() {
			return nil
		}

		arc, err := isArchiveFile(path)
		if err != nil {
			// checking format - but cannot open target file
			log.Warn("Skipping file", zap.String("file", path), zap.Error(err))
			return nil
		}
		if arc {
			if err := processArchive(ctx, path, "", filepath.Dir(strings.TrimPrefix(path, dir)), dst, log); err != nil {
				log.Error("Unable to process archive", zap.String("file", path), zap.Error(err))
			}
			return nil
		}

		doc, err := isDocumentFile(path)
		if err != nil {
			log.Warn("Skipping file", zap.String("file", path), zap.Error(err))
			return nil
		}
		if !doc {
			log.Debug("Skipping file, not recognized as document or archive", zap.String("file", path))
			return nil
		}

		count++

		file, err := os.Open(path)
		if err != nil {
			log.Error("Unable to process file", zap.String("file", path), zap.Error(err))
			return nil
		}
		defer file.Close()

		src := strings.TrimPrefix(strings.TrimPrefix(path, dir), string(filepath.Separator))
		if err := processDocument(ctx, file, src, dst, log); err != nil {
			log.Error("Unable to process file", zap.String("file", path), zap.Error(err))
		}
		return nil
	})
	return err
}

// processArchive walks all files inside archive, finds html files under
// "pathIn" and processes them.
func processArchive(ctx context.Context, path, pathIn, pathOut, dst string, log *zap.Logger) (err error) {
	count := 0
	defer func() {
		if err == nil && count == 0 {
			log.Debug("Nothing to process", zap.String("archive", path))
		}
	}()

	err = archive.Walk(path, pathIn, func(arc string, f *zip.File) error {
		if err := ctx.Err(); err != nil {
			return err
		}

		doc, err := isDocumentInArchive(f)
		if err != nil {
			log.Warn("Skipping file in archive",
				zap.String("archive", arc), zap.String("path", f.FileHeader.Name), zap.Error(err))
			return nil
		}
		if !doc {
			log.Debug("Skipping file, not recognized as document", zap.String("archive", arc), zap.String("file", f.FileHeader.Name))
			return nil
		}

		count++

		r, err := f.Open()
		if err != nil {
			log.Error("Unable to process file in archive",
				zap.String("archive", arc), zap.String("file", f.FileHeader.Name), zap.Error(err))
			return nil
		}
		defer r.Close()

		cp := state.EnvFromContext(ctx).CodePage

		pathInArchive := f.FileHeader.Name
		if cp != nil && f.FileHeader.NonUTF8 {
			// forcing zip file name encoding
			if n, err := cp.NewDecoder().String(pathInArchive); err == nil {
				pathInArchive = n
			} else {
				n, _ = ianaindex.IANA.Name(cp)
				log.Warn("Unable to convert archive name from specified encoding",
					zap.String("charset", n), zap.String("path", pathInArchive), zap.Error(err))
			}
		}
		if err := processDocument(ctx, r, filepath.Join(pathOut, pathInArchive), dst, log); err != nil {
			log.Error("Unable to process file in archive",
				zap.String("archive", arc), zap.String("file", f.FileHeader.Name), zap.Error(err))
		}
		return nil
	})
	return err
}

// processDocument converts a single HTML document into every requested output
// format. "src" is part of the source path (always including file name)
// relative to the original path. When actual file was specified it will be
// just base file name without a path. When looking inside archive or
// directory it will be relative path inside archive or directory (including
// base file name). "dst" is the destination directory where converted files
// should be written.
func processDocument(ctx context.Context, r io.Reader, src string, dst string, log *zap.Logger) (rerr error) {
	env := state.EnvFromContext(ctx)

	var outputs []string

	log.Info("Conversion starting", zap.String("from", src))
	defer func(start time.Time) {
		// if multiple documents are being processed we do not want to stop
		if r := recover(); r != nil {
			log.Error("Conversion ended with panic",
				zap.Any("panic", r), zap.Duration("elapsed", time.Since(start)), zap.Strings("to", outputs), zap.ByteString("stack", debug.Stack()))
			rerr = fmt.Errorf("conversion panic: %v", r)
		} else {
			log.Info("Conversion completed", zap.Duration("elapsed", time.Since(start)), zap.Strings("to", outputs))
		}
	}(time.Now())

	c, err := content.Prepare(ctx, r, src, log)
	if err != nil {
		return fmt.Errorf("unable to parse html source (%s): %w", src, err)
	}

	for _, format := range env.Formats {
		outputName := buildOutputPath(src, dst, format, env)

		// Check if output file already exists
		if _, err := os.Stat(outputName); err == nil {
			if !env.Overwrite {
				return fmt.Errorf("output file already exists: %s", outputName)
			}
			log.Warn("Overwriting existing file", zap.String("file", outputName))
			if err = os.Remove(outputName); err != nil {
				return err
			}
		} else if !os.IsNotExist(err) {
			return err
		} else if err := os.MkdirAll(filepath.Dir(outputName), 0755); err != nil {
			return fmt.Errorf("unable to create output directory: %w", err)
		}

		out, err := os.Create(outputName)
		if err != nil {
			return fmt.Errorf("unable to create output file: %w", err)
		}
		if err := c.WriteTo(ctx, out, format, log); err != nil {
			out.Close()
			return fmt.Errorf("unable to generate output: %w", err)
		}
		if err := out.Close(); err != nil {
			return err
		}
		outputs = append(outputs, outputName)

		// Store conversion result for debugging
		if env.Rpt != nil {
			base := strings.TrimSuffix(filepath.Base(src), filepath.Ext(src))
			env.Rpt.Store(fmt.Sprintf("result-%s%s", config.CleanFileName(base), format.Ext()), outputName)
		}
	}

	return nil
}
