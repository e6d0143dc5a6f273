// services/naming.go - clone and mount-directory naming.
package services

import (
	"regexp"
	"strings"

	"github.com/google/uuid"

	"dbclone/utils"
)

// capture pipeline appends a timestamp to the image file name,
// e.g. DB1_20180101.vhdx or DB1_20180101120000.vhdx
var imageTimestampRe = regexp.MustCompile(`_\d{8,14}$`)

// DeriveCloneName derives the default clone name from a parent image
// location: the base file name with its extension and capture timestamp
// stripped, so D:\images\DB1_20180101.vhdx yields DB1.
func DeriveCloneName(imageLocation string) string {
	base := utils.TrimExt(utils.BaseName(imageLocation))
	return imageTimestampRe.ReplaceAllString(base, "")
}

// RandomSuffix returns a short random alphanumeric token. Mount directories
// get one so concurrent runs for the same base name cannot compute the same
// access path without needing a naming registry.
func RandomSuffix() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
}

// AccessDirName computes the mount-directory name for a clone.
func AccessDirName(base string) string {
	return base + "_" + RandomSuffix()
}
