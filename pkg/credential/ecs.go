package credential

import (
	"context"

	"github.com/pkg/errors"

	"github.com/aliyun/oss-credentials/pkg/aliyun/metadata"
)

const ecsFetcherName = "ECSRoleMetadata"

// ECSRoleFetcher reads the ram role credentials from instance metadata.
// An empty role name is discovered on each fetch.
type ECSRoleFetcher struct {
	roleName string
}

func NewECSRoleFetcher(roleName string) *ECSRoleFetcher {
	return &ECSRoleFetcher{roleName: roleName}
}

func (e *ECSRoleFetcher) Fetch(ctx context.Context) (*Credentials, error) {
	role := e.roleName
	if role == "" {
		var err error
		role, err = metadata.GetRAMRoleName(ctx)
		if err != nil {
			return nil, newFetchError(ecsFetcherName, FetchErrorSource, errors.Wrapf(err, "error get instance role from metadata"))
		}
		log.Debugf("discovered ram role %s", role)
	}

	body, err := metadata.GetRAMRoleCredentials(ctx, role)
	if err != nil {
		return nil, newFetchError(ecsFetcherName, FetchErrorNetwork, errors.Wrapf(err, "error get credentials of role %s", role))
	}
	return parseSessionPayload(ecsFetcherName, body)
}

func (e *ECSRoleFetcher) Name() string {
	return ecsFetcherName
}
