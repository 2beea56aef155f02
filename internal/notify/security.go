package notify

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"os"

	"github.com/IBM/sarama"
	"github.com/aws/aws-msk-iam-sasl-signer-go/signer"
	"github.com/xdg-go/scram"

	"github.com/jittakal/sentimentetl/internal/config/dto"
)

// MSKAccessTokenProvider implements sarama.AccessTokenProvider for AWS MSK IAM authentication.
type MSKAccessTokenProvider struct {
	region string
}

// Token generates an AWS MSK IAM authentication token.
func (m *MSKAccessTokenProvider) Token() (*sarama.AccessToken, error) {
	// Credentials come from the environment or shared profile
	token, expiryMs, err := signer.GenerateAuthToken(context.Background(), m.region)
	if err != nil {
		return nil, fmt.Errorf("failed to generate MSK IAM token: %w", err)
	}

	return &sarama.AccessToken{
		Token: token,
		Extensions: map[string]string{
			"expiry": fmt.Sprintf("%d", expiryMs),
		},
	}, nil
}

// scramClient adapts an xdg-go/scram conversation to sarama.SCRAMClient.
type scramClient struct {
	hash scram.HashGeneratorFcn
	conv *scram.ClientConversation
}

var _ sarama.SCRAMClient = (*scramClient)(nil)

// scramClientFunc returns the client generator for a SCRAM-SHA-256 or
// SCRAM-SHA-512 mechanism name.
func scramClientFunc(mechanism string) func() sarama.SCRAMClient {
	hash := scram.SHA256
	if mechanism == "SCRAM-SHA-512" {
		hash = scram.SHA512
	}
	return func() sarama.SCRAMClient { return &scramClient{hash: hash} }
}

func (c *scramClient) Begin(userName, password, authzID string) error {
	client, err := c.hash.NewClient(userName, password, authzID)
	if err != nil {
		return fmt.Errorf("failed to start scram conversation: %w", err)
	}
	c.conv = client.NewConversation()
	return nil
}

func (c *scramClient) Step(challenge string) (string, error) {
	return c.conv.Step(challenge)
}

func (c *scramClient) Done() bool {
	return c.conv.Done()
}

// configureSecurity applies the SASL and TLS settings of cfg.
func configureSecurity(config *sarama.Config, cfg dto.NotifyConfig) error {
	switch cfg.SecurityProtocol {
	case "", "PLAINTEXT":
		return nil

	case "SASL_PLAINTEXT", "SASL_SSL":
		config.Net.SASL.Enable = true
		if err := configureSASL(config, cfg); err != nil {
			return err
		}
		if cfg.SecurityProtocol == "SASL_SSL" {
			return configureTLS(config, cfg.TLS)
		}
		return nil

	case "SSL":
		return configureTLS(config, cfg.TLS)

	default:
		return fmt.Errorf("unsupported security protocol: %s", cfg.SecurityProtocol)
	}
}

func configureSASL(config *sarama.Config, cfg dto.NotifyConfig) error {
	switch cfg.SASLMechanism {
	case "PLAIN":
		config.Net.SASL.Mechanism = sarama.SASLTypePlaintext
		config.Net.SASL.User = cfg.SASLUsername
		config.Net.SASL.Password = cfg.SASLPassword

	case "SCRAM-SHA-256", "SCRAM-SHA-512":
		config.Net.SASL.Mechanism = sarama.SASLMechanism(cfg.SASLMechanism)
		config.Net.SASL.User = cfg.SASLUsername
		config.Net.SASL.Password = cfg.SASLPassword
		config.Net.SASL.SCRAMClientGeneratorFunc = scramClientFunc(cfg.SASLMechanism)

	case "AWS_MSK_IAM":
		config.Net.SASL.Mechanism = sarama.SASLTypeOAuth
		// OAuth ignores these but sarama validates them
		config.Net.SASL.User = "token"
		config.Net.SASL.Password = "token"
		config.Net.SASL.TokenProvider = &MSKAccessTokenProvider{region: cfg.AWSRegion}

	default:
		return fmt.Errorf("unsupported SASL mechanism: %s", cfg.SASLMechanism)
	}
	return nil
}

func configureTLS(config *sarama.Config, cfg dto.TLSConfig) error {
	tlsConfig := &tls.Config{
		MinVersion:         tls.VersionTLS12,
		InsecureSkipVerify: cfg.InsecureSkipVerify,
	}

	if cfg.CACertFile != "" {
		caCert, err := os.ReadFile(cfg.CACertFile)
		if err != nil {
			return fmt.Errorf("failed to read CA certificate: %w", err)
		}
		caCertPool := x509.NewCertPool()
		if !caCertPool.AppendCertsFromPEM(caCert) {
			return fmt.Errorf("failed to parse CA certificate")
		}
		tlsConfig.RootCAs = caCertPool
	}

	if cfg.ClientCertFile != "" && cfg.ClientKeyFile != "" {
		cert, err := tls.LoadX509KeyPair(cfg.ClientCertFile, cfg.ClientKeyFile)
		if err != nil {
			return fmt.Errorf("failed to load client certificate: %w", err)
		}
		tlsConfig.Certificates = []tls.Certificate{cert}
	}

	config.Net.TLS.Enable = true
	config.Net.TLS.Config = tlsConfig
	return nil
}
