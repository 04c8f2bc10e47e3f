package acquire

import (
	"bufio"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/ProtonMail/go-crypto/openpgp" //nolint:staticcheck // Using ProtonMail's maintained fork

	"github.com/ZebulonRouseFrantzich/studiosdk/internal/config"
	"github.com/ZebulonRouseFrantzich/studiosdk/internal/logging"
)

// ChecksumFile is the optional checksum list published with a build.
const ChecksumFile = "SHA256SUMS"

var signatureExts = []string{".sig", ".asc"}

// Method indicates how an artifact was verified.
type Method int

const (
	// MethodNone means nothing was available to check.
	MethodNone Method = iota
	// MethodSHA256 means the artifact matched SHA256SUMS.
	MethodSHA256
	// MethodOpenPGP means a detached signature verified against the keyring.
	MethodOpenPGP
)

// String returns the string representation of the method.
func (m Method) String() string {
	switch m {
	case MethodSHA256:
		return "SHA256"
	case MethodOpenPGP:
		return "OpenPGP"
	case MethodNone:
		return "None"
	default:
		return "Unknown"
	}
}

// Verification is the outcome for one artifact.
type Verification struct {
	Name    string
	Methods []Method
}

// Verified reports whether any check ran.
func (v Verification) Verified() bool {
	return len(v.Methods) > 0
}

// VerificationError reports an artifact that failed a check.
type VerificationError struct {
	Name   string
	Method Method
	Err    error
}

func (e *VerificationError) Error() string {
	return fmt.Sprintf("%s verification failed for %s: %v", e.Method, e.Name, e.Err)
}

func (e *VerificationError) Unwrap() error {
	return e.Err
}

// ErrChecksumMismatch is wrapped by SHA256 failures.
var ErrChecksumMismatch = errors.New("checksum mismatch")

// ErrSignatureMissing is wrapped when signatures are required but absent.
var ErrSignatureMissing = errors.New("signature required but not available")

// Verifier checks artifacts against SHA256SUMS and detached signatures.
type Verifier struct {
	keyring     string
	requireSigs bool
	logger      logging.Logger
}

// NewVerifier creates a verifier from the verify configuration.
func NewVerifier(cfg config.VerifyConfig, logger logging.Logger) *Verifier {
	return &Verifier{
		keyring:     cfg.Keyring,
		requireSigs: cfg.RequireSignatures,
		logger:      logging.OrNop(logger),
	}
}

// Verify checks every named artifact in dir. Absent checksum or signature
// files mean there is nothing to check, unless signatures are required.
func (v *Verifier) Verify(dir string, names []string) ([]Verification, error) {
	sums, err := readChecksums(filepath.Join(dir, ChecksumFile))
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, err
	}

	var keyring openpgp.EntityList
	if v.keyring != "" {
		keyring, err = loadKeyring(v.keyring)
		if err != nil {
			return nil, err
		}
	}

	out := make([]Verification, 0, len(names))
	for _, name := range names {
		res := Verification{Name: name}
		path := filepath.Join(dir, name)

		if expected, ok := sums[name]; ok {
			if err := verifySHA256(path, expected); err != nil {
				return nil, &VerificationError{Name: name, Method: MethodSHA256, Err: err}
			}
			res.Methods = append(res.Methods, MethodSHA256)
		}

		if keyring != nil {
			sig := findSignature(path)
			switch {
			case sig != "":
				if err := verifySignature(keyring, path, sig); err != nil {
					return nil, &VerificationError{Name: name, Method: MethodOpenPGP, Err: err}
				}
				res.Methods = append(res.Methods, MethodOpenPGP)
			case v.requireSigs:
				return nil, &VerificationError{Name: name, Method: MethodOpenPGP, Err: ErrSignatureMissing}
			}
		}

		v.logger.Debug("Verified artifact", "name", name, "checks", len(res.Methods))
		out = append(out, res)
	}
	return out, nil
}

func findSignature(path string) string {
	for _, ext := range signatureExts {
		if _, err := os.Stat(path + ext); err == nil {
			return path + ext
		}
	}
	return ""
}

// verifySignature checks a detached signature, armored first.
func verifySignature(keyring openpgp.EntityList, path, sigPath string) error {
	file, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open artifact: %w", err)
	}
	defer file.Close()

	sig, err := os.Open(sigPath)
	if err != nil {
		return fmt.Errorf("open signature: %w", err)
	}
	defer sig.Close()

	_, err = openpgp.CheckArmoredDetachedSignature(keyring, file, sig, nil)
	if err != nil {
		if _, serr := file.Seek(0, io.SeekStart); serr != nil {
			return serr
		}
		if _, serr := sig.Seek(0, io.SeekStart); serr != nil {
			return serr
		}
		_, err = openpgp.CheckDetachedSignature(keyring, file, sig, nil)
	}
	if err != nil {
		return fmt.Errorf("verify signature: %w", err)
	}
	return nil
}

// loadKeyring reads an armored or binary public keyring.
func loadKeyring(path string) (openpgp.EntityList, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open keyring: %w", err)
	}
	defer f.Close()

	keyring, err := openpgp.ReadArmoredKeyRing(f)
	if err != nil {
		if _, serr := f.Seek(0, io.SeekStart); serr != nil {
			return nil, serr
		}
		keyring, err = openpgp.ReadKeyRing(f)
		if err != nil {
			return nil, fmt.Errorf("read keyring: %w", err)
		}
	}
	if len(keyring) == 0 {
		return nil, fmt.Errorf("keyring is empty")
	}
	return keyring, nil
}

func verifySHA256(path, expected string) error {
	actual, err := calculateSHA256(path)
	if err != nil {
		return fmt.Errorf("calculate checksum: %w", err)
	}
	if !strings.EqualFold(actual, expected) {
		return fmt.Errorf("%w:\nactual:   %s\nexpected: %s", ErrChecksumMismatch, actual, expected)
	}
	return nil
}

func calculateSHA256(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// readChecksums parses "<hex>  <name>" lines, keyed by base name.
func readChecksums(path string) (map[string]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	sums := map[string]string{}
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		parts := strings.Fields(scanner.Text())
		if len(parts) < 2 {
			continue
		}
		// binary mode entries are prefixed with '*'
		name := filepath.Base(strings.TrimPrefix(parts[1], "*"))
		sums[name] = parts[0]
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan %s: %w", ChecksumFile, err)
	}
	return sums, nil
}
