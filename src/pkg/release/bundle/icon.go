package bundle

import (
	"context"
	"fmt"
	"path/filepath"
	"strconv"

	"github.com/pkg/errors"

	"github.com/jxl-ui/jxl-release/src/pkg/infrastructure/fs"
	"github.com/jxl-ui/jxl-release/src/pkg/infrastructure/runner"
)

// iconSizes are the base resolutions of a macOS iconset; each also gets an @2x variant.
var iconSizes = []int{16, 32, 128, 256, 512}

// makeIcon rasterises src into a full iconset and converts it to an icns file
// at dest. The iconset lives in a temporary directory that is always removed.
func makeIcon(ctx context.Context, r runner.Runner, src, dest string) error {
	for _, tool := range []string{"sips", "iconutil"} {
		if _, err := r.LookPath(tool); err != nil {
			return errors.Errorf("%s is not available", tool)
		}
	}

	return fs.WithTempDir("jxl-release-icon-*", func(tmp string) error {
		iconset := filepath.Join(tmp, "AppIcon.iconset")
		if err := fs.EnsureDir(iconset, fs.PermDirShared); err != nil {
			return err
		}

		for _, size := range iconSizes {
			for _, scale := range []int{1, 2} {
				name := fmt.Sprintf("icon_%dx%d.png", size, size)
				if scale == 2 {
					name = fmt.Sprintf("icon_%dx%d@2x.png", size, size)
				}
				px := strconv.Itoa(size * scale)
				err := r.Run(ctx, runner.Command{
					Name: "sips",
					Args: []string{"-z", px, px, src, "--out", filepath.Join(iconset, name)},
				})
				if err != nil {
					return errors.Wrapf(err, "failed to rasterise %s", name)
				}
			}
		}

		return r.Run(ctx, runner.Command{
			Name: "iconutil",
			Args: []string{"-c", "icns", iconset, "-o", dest},
		})
	})
}
