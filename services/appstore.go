package services

import (
	"crypto/x509"
	"encoding/base64"
	"encoding/json"
	"encoding/pem"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/lestrrat-go/jwx/jwa"
	"github.com/lestrrat-go/jwx/jws"
)

// AppStoreVerifier verifies App Store Server Notifications v2. Every signed
// payload carries its certificate chain in the x5c header; the chain must
// end at the configured Apple root.
type AppStoreVerifier struct {
	roots           *x509.CertPool
	bundleID        string
	allowUnverified bool
	now             func() time.Time
}

// NewAppStoreVerifier loads the Apple root certificate (PEM or DER) from
// rootPath. allowUnverified skips chain validation for Sandbox
// notifications only; the signature is still checked against the leaf.
func NewAppStoreVerifier(rootPath, bundleID string, allowUnverified bool) (*AppStoreVerifier, error) {
	v := &AppStoreVerifier{bundleID: bundleID, allowUnverified: allowUnverified, now: time.Now}
	if rootPath == "" {
		if !allowUnverified {
			return nil, errors.New("apple root certificate path is required")
		}
		return v, nil
	}
	raw, err := os.ReadFile(rootPath)
	if err != nil {
		return nil, fmt.Errorf("read apple root certificate: %w", err)
	}
	if block, _ := pem.Decode(raw); block != nil {
		raw = block.Bytes
	}
	root, err := x509.ParseCertificate(raw)
	if err != nil {
		return nil, fmt.Errorf("parse apple root certificate: %w", err)
	}
	v.roots = x509.NewCertPool()
	v.roots.AddCert(root)
	return v, nil
}

// NewAppStoreVerifierWithRoots is used when the roots are already loaded
func NewAppStoreVerifierWithRoots(roots *x509.CertPool, bundleID string) *AppStoreVerifier {
	return &AppStoreVerifier{roots: roots, bundleID: bundleID, now: time.Now}
}

const appleSandbox = "Sandbox"

type appleNotificationPayload struct {
	NotificationType string `json:"notificationType"`
	Subtype          string `json:"subtype"`
	NotificationUUID string `json:"notificationUUID"`
	Data             struct {
		BundleID              string `json:"bundleId"`
		Environment           string `json:"environment"`
		SignedTransactionInfo string `json:"signedTransactionInfo"`
	} `json:"data"`
}

type appleTransactionPayload struct {
	TransactionID         string `json:"transactionId"`
	OriginalTransactionID string `json:"originalTransactionId"`
	ProductID             string `json:"productId"`
	BundleID              string `json:"bundleId"`
	AppAccountToken       string `json:"appAccountToken"`
	ExpiresDate           int64  `json:"expiresDate"`
}

func (v *AppStoreVerifier) Decode(signedPayload string) (*AppleNotification, error) {
	raw, err := v.verify([]byte(signedPayload))
	if err != nil {
		return nil, err
	}
	var payload appleNotificationPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil, fmt.Errorf("%w: notification payload: %v", ErrInvalidInput, err)
	}
	// Without a trusted root only Sandbox notifications are accepted
	if v.roots == nil && payload.Data.Environment != appleSandbox {
		return nil, fmt.Errorf("%w: unverified chain for %q environment", ErrInvalidSignature, payload.Data.Environment)
	}
	if v.bundleID != "" && payload.Data.BundleID != "" && payload.Data.BundleID != v.bundleID {
		return nil, invalid("notification for unexpected bundle %s", payload.Data.BundleID)
	}

	n := &AppleNotification{
		NotificationType: payload.NotificationType,
		Subtype:          payload.Subtype,
		NotificationUUID: payload.NotificationUUID,
		Environment:      payload.Data.Environment,
		BundleID:         payload.Data.BundleID,
	}
	if payload.Data.SignedTransactionInfo == "" {
		return n, nil
	}

	rawTx, err := v.verify([]byte(payload.Data.SignedTransactionInfo))
	if err != nil {
		return nil, err
	}
	var tx appleTransactionPayload
	if err := json.Unmarshal(rawTx, &tx); err != nil {
		return nil, fmt.Errorf("%w: transaction payload: %v", ErrInvalidInput, err)
	}
	n.Transaction = &AppleTransaction{
		TransactionID:         tx.TransactionID,
		OriginalTransactionID: tx.OriginalTransactionID,
		ProductID:             tx.ProductID,
		BundleID:              tx.BundleID,
		AppAccountToken:       tx.AppAccountToken,
	}
	if tx.ExpiresDate > 0 {
		n.Transaction.ExpiresDate = time.UnixMilli(tx.ExpiresDate).UTC()
	}
	return n, nil
}

// verify checks the x5c chain and the ES256 signature, returning the payload
func (v *AppStoreVerifier) verify(signed []byte) ([]byte, error) {
	msg, err := jws.Parse(signed)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSignature, err)
	}
	sigs := msg.Signatures()
	if len(sigs) == 0 {
		return nil, fmt.Errorf("%w: no signature", ErrInvalidSignature)
	}
	chain := sigs[0].ProtectedHeaders().X509CertChain()
	if len(chain) == 0 {
		return nil, fmt.Errorf("%w: missing x5c header", ErrInvalidSignature)
	}

	certs := make([]*x509.Certificate, 0, len(chain))
	for _, encoded := range chain {
		der, err := base64.StdEncoding.DecodeString(encoded)
		if err != nil {
			return nil, fmt.Errorf("%w: x5c encoding: %v", ErrInvalidSignature, err)
		}
		cert, err := x509.ParseCertificate(der)
		if err != nil {
			return nil, fmt.Errorf("%w: x5c certificate: %v", ErrInvalidSignature, err)
		}
		certs = append(certs, cert)
	}
	leaf := certs[0]

	if v.roots != nil {
		intermediates := x509.NewCertPool()
		for _, c := range certs[1:] {
			intermediates.AddCert(c)
		}
		_, err := leaf.Verify(x509.VerifyOptions{
			Roots:         v.roots,
			Intermediates: intermediates,
			CurrentTime:   v.now(),
			KeyUsages:     []x509.ExtKeyUsage{x509.ExtKeyUsageAny},
		})
		if err != nil {
			return nil, fmt.Errorf("%w: certificate chain: %v", ErrInvalidSignature, err)
		}
	} else if !v.allowUnverified {
		return nil, fmt.Errorf("%w: no trusted root configured", ErrInvalidSignature)
	}

	payload, err := jws.Verify(signed, jwa.ES256, leaf.PublicKey)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSignature, err)
	}
	return payload, nil
}
