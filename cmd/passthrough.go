package cmd

import (
	"fmt"

	"github.com/spf13/pflag"
)

// buildOption is a sphinx-build option forwarded verbatim. Valued options
// repeat as "-x value" pairs; the others repeat as often as given.
type buildOption struct {
	short   string
	long    string
	metavar string
}

func (o buildOption) valued() bool { return o.metavar != "" }

// buildOptions is in forwarding order.
var buildOptions = []buildOption{
	{short: "b", long: "builder", metavar: "builder"},
	{short: "M", long: "make-mode", metavar: "makebuilder"},
	{short: "a", long: "write-all"},
	{short: "E", long: "fresh-env"},
	{short: "d", long: "doctree-dir", metavar: "path"},
	{short: "j", long: "jobs", metavar: "N"},
	{short: "c", long: "conf-dir", metavar: "path"},
	{short: "C", long: "no-conf"},
	{short: "D", long: "define", metavar: "setting=value"},
	{short: "t", long: "tag", metavar: "tag"},
	{short: "A", long: "html-define", metavar: "name=value"},
	{short: "n", long: "nitpicky"},
	{short: "v", long: "verbose"},
	{short: "Q", long: "silent"},
	{short: "w", long: "warning-file", metavar: "file"},
	{short: "W", long: "fail-on-warning"},
	{short: "T", long: "traceback"},
	{short: "N", long: "no-build-color"},
	{short: "P", long: "pdb"},
}

func registerPassthrough(fs *pflag.FlagSet) {
	for _, o := range buildOptions {
		usage := fmt.Sprintf("passed to sphinx-build as -%s (see sphinx-build -h)", o.short)
		if o.valued() {
			fs.StringArrayP(o.long, o.short, nil, usage)
			if f := fs.Lookup(o.long); f != nil {
				f.Usage = fmt.Sprintf("passed to sphinx-build as -%s %s (see sphinx-build -h)", o.short, o.metavar)
			}
			continue
		}
		fs.CountP(o.long, o.short, usage)
	}
}

// collectPassthrough returns the build tool arguments given on fs, grouped
// per option in buildOptions order.
func collectPassthrough(fs *pflag.FlagSet) []string {
	var args []string
	for _, o := range buildOptions {
		opt := "-" + o.short
		if o.valued() {
			values, err := fs.GetStringArray(o.long)
			if err != nil {
				continue
			}
			for _, v := range values {
				args = append(args, opt, v)
			}
			continue
		}
		n, err := fs.GetCount(o.long)
		if err != nil {
			continue
		}
		for range n {
			args = append(args, opt)
		}
	}
	return args
}
