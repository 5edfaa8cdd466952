package sri

import (
	"crypto/sha512"
	"encoding/base64"
	"fmt"
	"io"
	"os"

	"github.com/pkg/errors"
)

// CalculateFileSRI generates a Subresource Integrity string for a particular file.
func CalculateFileSRI(filepath string) (string, error) {
	f, err := os.Open(filepath)
	if err != nil {
		return "", errors.Wrap(err, "could not open file")
	}
	defer f.Close()

	h := sha512.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", errors.Wrapf(err, "could not hash %s", filepath)
	}
	return format(h.Sum(nil)), nil
}

// CalculateSRI calculates a Subresource Integrity string from bytes.
func CalculateSRI(bytes []byte) string {
	sum := sha512.Sum512(bytes)
	return format(sum[:])
}

func format(sum []byte) string {
	return fmt.Sprintf("sha512-%s", base64.StdEncoding.EncodeToString(sum))
}
