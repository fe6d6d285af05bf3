package emit

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/chargeport/exigen/config"
)

// fileLogger opens the per-emitted-file grammar log. Its name derives
// from the entry's implementation (or header) filename with the
// extension replaced by .txt. The returned closer releases the handle
// on every exit path of the file's generation.
func (g *Generator) fileLogger(spec config.FileSpec) (*logrus.Entry, func(), error) {
	name := ""
	if spec.C != nil {
		name = spec.C.Filename
	} else if spec.H != nil {
		name = spec.H.Filename
	}
	if name == "" {
		return logrus.NewEntry(g.log), func() {}, nil
	}

	lower := strings.ToLower(name)
	if strings.HasSuffix(lower, ".h") || strings.HasSuffix(lower, ".c") {
		name = name[:len(name)-2]
	}

	if g.cfg.LogDir == "" {
		return logrus.NewEntry(g.log), func() {}, nil
	}
	if err := os.MkdirAll(g.cfg.LogDir, 0o755); err != nil {
		return nil, nil, &Error{File: spec.Name, Reason: "creating log directory", Err: err}
	}

	path := filepath.Join(g.cfg.LogDir, name+".txt")
	out, err := os.Create(path)
	if err != nil {
		return nil, nil, &Error{File: spec.Name, Reason: "creating log file", Err: err}
	}

	logger := logrus.New()
	logger.SetOutput(out)
	logger.SetFormatter(&logrus.TextFormatter{
		DisableTimestamp: true,
		DisableColors:    true,
	})

	closeLog := func() {
		_ = out.Close()
	}
	return logrus.NewEntry(logger), closeLog, nil
}
