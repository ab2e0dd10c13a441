package s3

import (
	"context"
	"errors"
	"fmt"
	"path"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/ragmem/memvec/blobstore"
)

// DDBClient is the subset of the DynamoDB API the commit store needs.
type DDBClient interface {
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	Query(ctx context.Context, params *dynamodb.QueryInput, optFns ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error)
}

// ErrConcurrentModification is returned when another writer committed a
// snapshot between this writer's read and its commit.
var ErrConcurrentModification = errors.New("s3: concurrent modification detected")

// CommitStore implements blobstore.BlobStore backed by S3 with DynamoDB
// providing the atomic commit that S3 lacks.
//
// Each PutAll writes its blobs under a fresh versioned prefix, then performs
// a DynamoDB conditional write registering that version. Readers resolve the
// latest committed version first, so they either see a complete snapshot
// group or the previous one, never a torn mix.
//
// Table schema:
//   - Partition key: base_uri (string) - the S3 bucket/prefix
//   - Sort key: version (number) - monotonically increasing version
//
// Create table with:
//
//	aws dynamodb create-table \
//	  --table-name memvec-commits \
//	  --attribute-definitions AttributeName=base_uri,AttributeType=S AttributeName=version,AttributeType=N \
//	  --key-schema AttributeName=base_uri,KeyType=HASH AttributeName=version,KeyType=RANGE \
//	  --billing-mode PAY_PER_REQUEST
type CommitStore struct {
	store     *Store
	ddbClient DDBClient
	tableName string
	baseURI   string
}

var _ blobstore.BlobStore = (*CommitStore)(nil)

// NewCommitStore creates an S3+DynamoDB commit store.
// baseURI should be "s3://bucket/prefix", used as the partition key.
func NewCommitStore(store *Store, ddbClient DDBClient, tableName, baseURI string) *CommitStore {
	return &CommitStore{
		store:     store,
		ddbClient: ddbClient,
		tableName: tableName,
		baseURI:   baseURI,
	}
}

// Get reads a blob from the latest committed version.
func (s *CommitStore) Get(ctx context.Context, name string) ([]byte, error) {
	version, err := s.latestVersion(ctx)
	if err != nil {
		return nil, err
	}
	if version == 0 {
		return nil, fmt.Errorf("blobstore: %s: %w", name, blobstore.ErrNotFound)
	}
	return s.store.Get(ctx, versionedName(version, name))
}

// Put writes a single blob as a one-entry group.
func (s *CommitStore) Put(ctx context.Context, name string, data []byte) error {
	return s.PutAll(ctx, map[string][]byte{name: data})
}

// PutAll writes all blobs under a new versioned prefix and then commits the
// version with a DynamoDB conditional write. If another writer committed the
// same version concurrently, ErrConcurrentModification is returned and the
// staged blobs remain invisible to readers.
func (s *CommitStore) PutAll(ctx context.Context, blobs map[string][]byte) error {
	current, err := s.latestVersion(ctx)
	if err != nil {
		return err
	}
	next := current + 1

	for name, data := range blobs {
		if err := s.store.Put(ctx, versionedName(next, name), data); err != nil {
			return fmt.Errorf("blobstore: put %s: %w", name, err)
		}
	}
	return s.commitVersion(ctx, next)
}

// Delete removes a blob from the latest committed version.
func (s *CommitStore) Delete(ctx context.Context, name string) error {
	version, err := s.latestVersion(ctx)
	if err != nil {
		return err
	}
	if version == 0 {
		return nil
	}
	return s.store.Delete(ctx, versionedName(version, name))
}

// List returns blob names in the latest committed version starting with prefix.
func (s *CommitStore) List(ctx context.Context, prefix string) ([]string, error) {
	version, err := s.latestVersion(ctx)
	if err != nil {
		return nil, err
	}
	if version == 0 {
		return nil, nil
	}

	dir := versionedName(version, "")
	names, err := s.store.List(ctx, path.Join(dir, prefix))
	if err != nil {
		return nil, err
	}
	for i, name := range names {
		names[i] = strings.TrimPrefix(strings.TrimPrefix(name, dir), "/")
	}
	return names, nil
}

func versionedName(version uint64, name string) string {
	return path.Join(fmt.Sprintf("v%016d", version), name)
}

// latestVersion queries DynamoDB for the newest committed version.
// Returns 0 when nothing was committed yet.
func (s *CommitStore) latestVersion(ctx context.Context) (uint64, error) {
	resp, err := s.ddbClient.Query(ctx, &dynamodb.QueryInput{
		TableName:              aws.String(s.tableName),
		KeyConditionExpression: aws.String("base_uri = :uri"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":uri": &types.AttributeValueMemberS{Value: s.baseURI},
		},
		ScanIndexForward: aws.Bool(false),
		Limit:            aws.Int32(1),
	})
	if err != nil {
		return 0, fmt.Errorf("s3: query commits: %w", err)
	}
	if len(resp.Items) == 0 {
		return 0, nil
	}

	versionAttr, ok := resp.Items[0]["version"].(*types.AttributeValueMemberN)
	if !ok {
		return 0, errors.New("s3: invalid version attribute in commit table")
	}

	var version uint64
	if _, err := fmt.Sscanf(versionAttr.Value, "%d", &version); err != nil {
		return 0, fmt.Errorf("s3: parse version: %w", err)
	}
	return version, nil
}

// commitVersion registers a version with a conditional put that fails if the
// version row already exists.
func (s *CommitStore) commitVersion(ctx context.Context, version uint64) error {
	_, err := s.ddbClient.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(s.tableName),
		Item: map[string]types.AttributeValue{
			"base_uri": &types.AttributeValueMemberS{Value: s.baseURI},
			"version":  &types.AttributeValueMemberN{Value: fmt.Sprintf("%d", version)},
		},
		ConditionExpression: aws.String("attribute_not_exists(version)"),
	})
	if err != nil {
		var condErr *types.ConditionalCheckFailedException
		if errors.As(err, &condErr) {
			return ErrConcurrentModification
		}
		return fmt.Errorf("s3: commit version: %w", err)
	}
	return nil
}
