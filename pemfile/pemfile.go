package pemfile

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"os"

	"github.com/pkg/errors"
	"github.com/zond/mudkit"

	gossh "golang.org/x/crypto/ssh"
)

const (
	keyBits = 4096
)

// KeyParams locates the SSH host key of the server.
type KeyParams struct {
	KeyPath       string
	SSHPubKeyPath string
	// Bits is the RSA key size, 0 means 4096.
	Bits int
}

// Generate writes a new private key and its authorized_keys formatted public
// key.
func (k KeyParams) Generate() error {
	bits := k.Bits
	if bits == 0 {
		bits = keyBits
	}
	privateKey, err := rsa.GenerateKey(rand.Reader, bits)
	if err != nil {
		return mudkit.WithStack(err)
	}
	if err := os.WriteFile(k.KeyPath, pem.EncodeToMemory(
		&pem.Block{
			Type:  "RSA PRIVATE KEY",
			Bytes: x509.MarshalPKCS1PrivateKey(privateKey),
		}),
		0600,
	); err != nil {
		return mudkit.WithStack(err)
	}

	pub, err := gossh.NewPublicKey(&privateKey.PublicKey)
	if err != nil {
		return mudkit.WithStack(err)
	}
	if err := os.WriteFile(k.SSHPubKeyPath, gossh.MarshalAuthorizedKey(pub), 0600); err != nil {
		return mudkit.WithStack(err)
	}
	return nil
}

// Ensure returns the signer of the private key, generating the key pair
// first if it doesn't exist.
func (k KeyParams) Ensure() (gossh.Signer, bool, error) {
	generated := false
	pemBytes, err := os.ReadFile(k.KeyPath)
	if errors.Is(err, os.ErrNotExist) {
		if err := k.Generate(); err != nil {
			return nil, false, err
		}
		generated = true
		pemBytes, err = os.ReadFile(k.KeyPath)
	}
	if err != nil {
		return nil, false, mudkit.WithStack(err)
	}
	signer, err := gossh.ParsePrivateKey(pemBytes)
	if err != nil {
		return nil, false, mudkit.WithStack(err)
	}
	return signer, generated, nil
}
