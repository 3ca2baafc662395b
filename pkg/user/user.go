package user

type User struct {
	Id           int64  `json:"id"`
	Username     string `json:"username"`
	Email        string `json:"email,omitempty"`
	Bio          string `json:"bio,omitempty"`
	Avatar       string `json:"avatar,omitempty"`
	AuthProvider string `json:"auth_provider,omitempty"`
}

// Raw is a user as some endpoints deliver it: embedded author objects use
// name/image where the full profile uses username/avatar. Normalize folds
// the aliases into the canonical shape once, at the ingestion boundary.
type Raw struct {
	Id           int64  `json:"id"`
	Username     string `json:"username"`
	Name         string `json:"name"`
	Email        string `json:"email"`
	Bio          string `json:"bio"`
	Avatar       string `json:"avatar"`
	Image        string `json:"image"`
	AuthProvider string `json:"auth_provider"`
}

func (r *Raw) Normalize() *User {
	if r == nil {
		return nil
	}
	u := &User{
		Id:           r.Id,
		Username:     r.Username,
		Email:        r.Email,
		Bio:          r.Bio,
		Avatar:       r.Avatar,
		AuthProvider: r.AuthProvider,
	}
	if u.Username == "" {
		u.Username = r.Name
	}
	if u.Avatar == "" {
		u.Avatar = r.Image
	}
	return u
}
