package reports

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"testing"

	"github.com/agentmarket/popsim/internal/domain/population"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakePutter struct {
	input *s3.PutObjectInput
	body  []byte
	err   error
}

func (f *fakePutter) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	f.input = in
	f.body, _ = io.ReadAll(in.Body)
	return &s3.PutObjectOutput{}, f.err
}

func TestArchive_ObjectKey(t *testing.T) {
	tests := []struct {
		prefix string
		want   string
	}{
		{prefix: "", want: "r1.json"},
		{prefix: "runs", want: "runs/r1.json"},
		{prefix: "/runs/", want: "runs/r1.json"},
		{prefix: "env/prod/runs", want: "env/prod/runs/r1.json"},
	}
	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			a := newArchive(&fakePutter{}, "bucket", tt.prefix)
			assert.Equal(t, tt.want, a.objectKey("r1"))
		})
	}
}

func TestArchive_Upload(t *testing.T) {
	putter := &fakePutter{}
	a := newArchive(putter, "popsim-reports", "runs")

	loc, err := a.Upload(context.Background(), &population.Report{RunID: "42", Requested: 5, Created: 5})
	require.NoError(t, err)
	assert.Equal(t, "s3://popsim-reports/runs/42.json", loc)
	assert.Equal(t, "popsim-reports", aws.ToString(putter.input.Bucket))
	assert.Equal(t, "application/json", aws.ToString(putter.input.ContentType))

	var decoded population.Report
	require.NoError(t, json.Unmarshal(putter.body, &decoded))
	assert.Equal(t, "42", decoded.RunID)
	assert.Equal(t, 5, decoded.Created)
}

func TestArchive_UploadError(t *testing.T) {
	a := newArchive(&fakePutter{err: errors.New("access denied")}, "b", "")
	_, err := a.Upload(context.Background(), &population.Report{RunID: "7"})
	assert.ErrorContains(t, err, "failed to upload report 7")
}
