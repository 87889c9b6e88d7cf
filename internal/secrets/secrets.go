// Package secrets resolves the provider credential at startup from AWS SSM
// Parameter Store or a KMS encrypted blob.
package secrets

import (
	"context"
	"encoding/base64"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/kms"
	"github.com/aws/aws-sdk-go-v2/service/ssm"

	"github.com/keithlinneman/charactergen/internal/xerrors"
)

// parameterGetter is the subset of the SSM API used here
type parameterGetter interface {
	GetParameter(ctx context.Context, params *ssm.GetParameterInput, optFns ...func(*ssm.Options)) (*ssm.GetParameterOutput, error)
}

// decrypter is the subset of the KMS API used here
type decrypter interface {
	Decrypt(ctx context.Context, params *kms.DecryptInput, optFns ...func(*kms.Options)) (*kms.DecryptOutput, error)
}

// Source names where the secret lives. At most one field is set.
type Source struct {
	SSMParam      string
	KMSCiphertext string // base64
}

func (s Source) Empty() bool { return s.SSMParam == "" && s.KMSCiphertext == "" }

type Resolver struct {
	ssm parameterGetter
	kms decrypter
}

// NewResolver loads the default AWS config chain
func NewResolver(ctx context.Context) (*Resolver, error) {
	awsCfg, err := config.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, xerrors.Wrap(err, "load AWS config")
	}
	return NewResolverFromConfig(awsCfg), nil
}

func NewResolverFromConfig(awsCfg aws.Config) *Resolver {
	return &Resolver{
		ssm: ssm.NewFromConfig(awsCfg),
		kms: kms.NewFromConfig(awsCfg),
	}
}

// Resolve returns the trimmed secret. An empty Source resolves to "".
func (r *Resolver) Resolve(ctx context.Context, src Source) (string, error) {
	switch {
	case src.SSMParam != "" && src.KMSCiphertext != "":
		return "", xerrors.New("secret source is ambiguous: both SSM parameter and KMS ciphertext set")
	case src.SSMParam != "":
		return r.fromSSM(ctx, src.SSMParam)
	case src.KMSCiphertext != "":
		return r.fromKMS(ctx, src.KMSCiphertext)
	}
	return "", nil
}

func (r *Resolver) fromSSM(ctx context.Context, name string) (string, error) {
	if r.ssm == nil {
		return "", xerrors.New("ssm client is not configured")
	}
	out, err := r.ssm.GetParameter(ctx, &ssm.GetParameterInput{
		Name:           aws.String(name),
		WithDecryption: aws.Bool(true),
	})
	if err != nil {
		return "", xerrors.Wrapf(err, "get SSM parameter %s", name)
	}
	if out.Parameter == nil || out.Parameter.Value == nil {
		return "", xerrors.Newf("SSM parameter %s has no value", name)
	}
	v := strings.TrimSpace(*out.Parameter.Value)
	if v == "" {
		return "", xerrors.Newf("SSM parameter %s is empty", name)
	}
	return v, nil
}

func (r *Resolver) fromKMS(ctx context.Context, ciphertext string) (string, error) {
	if r.kms == nil {
		return "", xerrors.New("kms client is not configured")
	}
	blob, err := base64.StdEncoding.DecodeString(strings.TrimSpace(ciphertext))
	if err != nil {
		return "", xerrors.Wrap(err, "decode KMS ciphertext")
	}
	out, err := r.kms.Decrypt(ctx, &kms.DecryptInput{CiphertextBlob: blob})
	if err != nil {
		return "", xerrors.Wrap(err, "kms decrypt")
	}
	v := strings.TrimSpace(string(out.Plaintext))
	if v == "" {
		return "", xerrors.New("kms plaintext is empty")
	}
	return v, nil
}
