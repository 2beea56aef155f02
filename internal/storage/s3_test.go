package storage

import (
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
)

func TestS3Publisher_SSE(t *testing.T) {
	tests := []struct {
		name     string
		enabled  bool
		kmsKeyID string
		wantSSE  types.ServerSideEncryption
		wantKey  string
	}{
		{"disabled", false, "", "", ""},
		{"aes256", true, "", types.ServerSideEncryptionAes256, ""},
		{"kms", true, "arn:aws:kms:us-east-1:111:key/abc", types.ServerSideEncryptionAwsKms, "arn:aws:kms:us-east-1:111:key/abc"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := &S3Publisher{bucket: "bkt", sseEnabled: tt.enabled, sseKMSKeyID: tt.kmsKeyID}
			input := p.putObjectInput("etl/out.csv", "data/out.csv")

			if aws.ToString(input.Bucket) != "bkt" || aws.ToString(input.Key) != "etl/out.csv" {
				t.Errorf("bucket/key = %s/%s", aws.ToString(input.Bucket), aws.ToString(input.Key))
			}
			if aws.ToString(input.ContentType) != "text/csv" {
				t.Errorf("ContentType = %s, want text/csv", aws.ToString(input.ContentType))
			}
			if input.ServerSideEncryption != tt.wantSSE {
				t.Errorf("ServerSideEncryption = %q, want %q", input.ServerSideEncryption, tt.wantSSE)
			}
			if aws.ToString(input.SSEKMSKeyId) != tt.wantKey {
				t.Errorf("SSEKMSKeyId = %q, want %q", aws.ToString(input.SSEKMSKeyId), tt.wantKey)
			}
		})
	}
}
