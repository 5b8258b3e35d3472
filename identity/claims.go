package identity

import (
	"strings"

	"github.com/empowerhr/empower-client/internal/errors"
	"github.com/empowerhr/empower-client/internal/utils"
	jwtlib "github.com/golang-jwt/jwt/v5"
	pkgerrors "github.com/pkg/errors"
)

// Identity token claim names as issued by the backend. The misspelt
// expanseManagement claim is the wire format; it maps to ExpenseManagement.
const (
	claimSub               = "sub"
	claimName              = "name"
	claimFullName          = "fullname"
	claimEmail             = "email"
	claimPhone             = "phone"
	claimRole              = "role"
	claimPermission        = "permission"
	claimType              = "type"
	claimLeave             = "leave"
	claimPerformance       = "performance"
	claimTimesheet         = "timesheet"
	claimExpanseManagement = "expanseManagement"
	claimRecruitment       = "recruitment"
	claimSalesMarketing    = "salesMarketing"
	claimConfiguration     = "configuration"
)

// DecodeIDToken parses the claim set of an identity token into a User.
// The signature is not verified: validation happens at the backend, the
// client only materializes the claims it was handed. A token that fails to
// parse is fatal for the surrounding login or refresh attempt.
func DecodeIDToken(rawToken string) (*User, error) {
	if strings.TrimSpace(rawToken) == "" {
		return nil, pkgerrors.Wrap(errors.ErrInvalidToken, "[DecodeIDToken] empty token")
	}

	token, _, err := jwtlib.NewParser().ParseUnverified(rawToken, jwtlib.MapClaims{})
	if err != nil {
		return nil, pkgerrors.Wrapf(errors.ErrInvalidToken, "[DecodeIDToken] parse: %v", err)
	}

	claims, ok := token.Claims.(jwtlib.MapClaims)
	if !ok {
		return nil, pkgerrors.Wrap(errors.ErrInvalidToken, "[DecodeIDToken] error extracting claims")
	}

	user := &User{
		ID:            stringClaim(claims, claimSub),
		UserName:      stringClaim(claims, claimName),
		FullName:      stringClaim(claims, claimFullName),
		Email:         stringClaim(claims, claimEmail),
		PhoneNumber:   stringClaim(claims, claimPhone),
		Roles:         NormalizeClaimSet(claims[claimRole]),
		Permissions:   NormalizeClaimSet(claims[claimPermission]),
		Type:          UserType(stringClaim(claims, claimType)),
		Configuration: stringClaim(claims, claimConfiguration),
		ModuleAccess: ModuleAccess{
			Leave:             flagClaim(claims, claimLeave),
			Performance:       flagClaim(claims, claimPerformance),
			Timesheet:         flagClaim(claims, claimTimesheet),
			ExpenseManagement: flagClaim(claims, claimExpanseManagement),
			Recruitment:       flagClaim(claims, claimRecruitment),
			SalesMarketing:    flagClaim(claims, claimSalesMarketing),
		},
	}

	if user.ID == "" {
		return nil, pkgerrors.Wrap(errors.ErrInvalidToken, "[DecodeIDToken] missing sub claim")
	}

	return user, nil
}

// NormalizeClaimSet converts a role or permission claim, which the backend
// issues as either a single string or a list, into a deduplicated string set.
// Normalizing an already normalized set is a no-op.
func NormalizeClaimSet(claim any) []string {
	switch v := claim.(type) {
	case nil:
		return []string{}
	case string:
		return utils.UniqueStrings([]string{v})
	case []string:
		return utils.UniqueStrings(v)
	case []any:
		return utils.UniqueStrings(utils.ToStringSlice(v))
	default:
		return []string{}
	}
}

func stringClaim(claims jwtlib.MapClaims, name string) string {
	s, _ := claims[name].(string)
	return s
}

// flagClaim decodes a module entitlement. The backend encodes these as the
// literal strings "1" and "0".
func flagClaim(claims jwtlib.MapClaims, name string) bool {
	return stringClaim(claims, name) == "1"
}
