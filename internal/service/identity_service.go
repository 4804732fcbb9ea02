package service

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"chirp/internal/models"
	"chirp/internal/repository"
	"chirp/internal/validation"

	"golang.org/x/crypto/bcrypt"
)

// RecentPostsLimit caps the posts embedded in a profile view.
const RecentPostsLimit = 10

// IdentityService manages accounts, profiles and the follow/block graph.
type IdentityService struct {
	users    repository.UserRepository
	graph    repository.GraphRepository
	posts    repository.PostRepository
	notify   *NotificationService
	activity *ActivityRecorder
	policy   Policy
	cost     int

	mu       sync.Mutex
	reserved map[string]struct{}
}

// NewIdentityService returns an IdentityService.
func NewIdentityService(
	users repository.UserRepository,
	graph repository.GraphRepository,
	posts repository.PostRepository,
	notify *NotificationService,
	activity *ActivityRecorder,
	policy Policy,
) *IdentityService {
	return &IdentityService{
		users:    users,
		graph:    graph,
		posts:    posts,
		notify:   notify,
		activity: activity,
		policy:   policy,
		cost:     bcrypt.DefaultCost,
		reserved: make(map[string]struct{}),
	}
}

// SetHashCost overrides the bcrypt cost. Tests use bcrypt.MinCost.
func (s *IdentityService) SetHashCost(cost int) {
	s.cost = cost
}

// RegisterInput is the payload for creating an account.
type RegisterInput struct {
	Username string
	Password string
	IsAdmin  bool
	Verified bool
	Bio      string
	Theme    string
}

// Register creates an account. The username stays reserved from the existence check until
// the insert completes, so concurrent registrations of the same name cannot both pass the
// check while the password is being hashed.
func (s *IdentityService) Register(ctx context.Context, in RegisterInput) (*models.User, error) {
	in.Username = strings.TrimSpace(in.Username)
	if in.Username == "" || in.Password == "" {
		return nil, models.NewValidationError("Username and password required")
	}
	if err := validation.ValidateUsername(in.Username); err != nil {
		return nil, models.NewValidationError(err.Error())
	}
	if err := validation.ValidatePassword(in.Password); err != nil {
		return nil, models.NewValidationError(err.Error())
	}
	if in.Theme == "" {
		in.Theme = "#ffffff"
	}

	if !s.reserve(in.Username) {
		return nil, models.NewConflictError("Username taken")
	}
	defer s.release(in.Username)

	banned, err := s.users.IsBanned(ctx, in.Username)
	if err != nil {
		return nil, err
	}
	if banned {
		return nil, models.NewConflictError("Username unavailable")
	}
	existing, err := s.users.GetByUsername(ctx, in.Username)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, models.NewConflictError("Username taken")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), s.cost)
	if err != nil {
		return nil, models.NewInternalError(err)
	}

	user := &models.User{
		Username:   in.Username,
		Password:   string(hash),
		IsAdmin:    in.IsAdmin,
		Verified:   in.Verified,
		Bio:        validation.Truncate(in.Bio, s.policy.BioMaxLength),
		ThemeColor: in.Theme,
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, err
	}

	s.activity.Record(ctx, user.ID, ActionRegister, "", nil)
	return user, nil
}

func (s *IdentityService) reserve(username string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, taken := s.reserved[username]; taken {
		return false
	}
	s.reserved[username] = struct{}{}
	return true
}

func (s *IdentityService) release(username string) {
	s.mu.Lock()
	delete(s.reserved, username)
	s.mu.Unlock()
}

// Authenticate checks credentials. Banned accounts get a forbidden error.
func (s *IdentityService) Authenticate(ctx context.Context, username, password string) (*models.User, error) {
	if username == "" || password == "" {
		return nil, models.NewValidationError("Username and password required")
	}
	banned, err := s.users.IsBanned(ctx, username)
	if err != nil {
		return nil, err
	}
	if banned {
		return nil, models.NewForbiddenError("Account banned")
	}

	user, err := s.users.GetByUsername(ctx, username)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, models.NewUnauthorizedError("Invalid credentials")
	}
	if cmpErr := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)); cmpErr != nil {
		return nil, models.NewUnauthorizedError("Invalid credentials")
	}

	s.activity.Record(ctx, user.ID, ActionLogin, "", nil)
	return user, nil
}

// GetUser loads an account by id.
func (s *IdentityService) GetUser(ctx context.Context, id uint) (*models.User, error) {
	return s.users.GetByID(ctx, id)
}

// IsBanned reports whether username carries a ban tombstone.
func (s *IdentityService) IsBanned(ctx context.Context, username string) (bool, error) {
	return s.users.IsBanned(ctx, username)
}

// RecordLogout appends the logout entry once the token has been revoked.
func (s *IdentityService) RecordLogout(ctx context.Context, userID uint) {
	s.activity.Record(ctx, userID, ActionLogout, "", nil)
}

func (s *IdentityService) lookup(ctx context.Context, username string) (*models.User, error) {
	user, err := s.users.GetByUsername(ctx, username)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, models.NewNotFoundError("User not found")
	}
	return user, nil
}

// Follow makes actor follow username and notifies the target.
func (s *IdentityService) Follow(ctx context.Context, actor *models.User, username string) (*models.User, error) {
	target, err := s.lookup(ctx, username)
	if err != nil {
		return nil, err
	}
	if target.ID == actor.ID {
		return nil, models.NewValidationError("Cannot follow yourself")
	}
	created, err := s.graph.Follow(ctx, actor.ID, target.ID)
	if err != nil {
		return nil, err
	}
	if !created {
		return nil, models.NewConflictError("Already following")
	}

	if err := s.notify.Notify(ctx, NewNotification(target.ID, actor, models.NotificationFollow,
		fmt.Sprintf("%s followed you", actor.Username), nil)); err != nil {
		return nil, err
	}
	s.activity.Record(ctx, actor.ID, ActionFollow, target.Username, nil)
	return target, nil
}

// Unfollow removes the follow edge and tells the former followee.
func (s *IdentityService) Unfollow(ctx context.Context, actor *models.User, username string) (*models.User, error) {
	target, err := s.lookup(ctx, username)
	if err != nil {
		return nil, err
	}
	if target.ID == actor.ID {
		return nil, models.NewValidationError("Cannot unfollow yourself")
	}

	removed, err := s.graph.Unfollow(ctx, actor.ID, target.ID)
	if err != nil {
		return nil, err
	}
	if !removed {
		return nil, models.NewConflictError("Not following this user")
	}

	if err := s.notify.Notify(ctx, NewNotification(target.ID, actor, models.NotificationUnfollow,
		fmt.Sprintf("%s unfollowed you", actor.Username), nil)); err != nil {
		return nil, err
	}
	s.activity.Record(ctx, actor.ID, ActionUnfollow, target.Username, nil)
	return target, nil
}

// Block blocks username and drops follow edges in both directions.
func (s *IdentityService) Block(ctx context.Context, actor *models.User, username string) (*models.User, error) {
	target, err := s.lookup(ctx, username)
	if err != nil {
		return nil, err
	}
	if target.ID == actor.ID {
		return nil, models.NewValidationError("Cannot block yourself")
	}

	created, err := s.graph.Block(ctx, actor.ID, target.ID)
	if err != nil {
		return nil, err
	}
	if !created {
		return nil, models.NewConflictError("Already blocked")
	}

	s.activity.Record(ctx, actor.ID, ActionBlock, target.Username, nil)
	return target, nil
}

// Unblock lifts a block. Follow edges removed by the block are not restored.
func (s *IdentityService) Unblock(ctx context.Context, actor *models.User, username string) (*models.User, error) {
	target, err := s.lookup(ctx, username)
	if err != nil {
		return nil, err
	}

	removed, err := s.graph.Unblock(ctx, actor.ID, target.ID)
	if err != nil {
		return nil, err
	}
	if !removed {
		return nil, models.NewConflictError("Not blocked")
	}

	s.activity.Record(ctx, actor.ID, ActionUnblock, target.Username, nil)
	return target, nil
}

// UpdateProfileInput holds optional profile changes; nil leaves a field untouched.
type UpdateProfileInput struct {
	Bio        *string
	ThemeColor *string
}

// UpdateProfile sets bio and theme colour. Bios longer than the configured limit are truncated.
func (s *IdentityService) UpdateProfile(ctx context.Context, actor *models.User, in UpdateProfileInput) (*models.User, error) {
	fields := map[string]interface{}{}
	if in.Bio != nil {
		bio := validation.Truncate(validation.StripMarkup(*in.Bio), s.policy.BioMaxLength)
		fields["bio"] = bio
		actor.Bio = bio
	}
	if in.ThemeColor != nil && *in.ThemeColor != "" {
		if err := validation.ValidateThemeColor(*in.ThemeColor); err != nil {
			return nil, models.NewValidationError(err.Error())
		}
		fields["theme_color"] = *in.ThemeColor
		actor.ThemeColor = *in.ThemeColor
	}
	if len(fields) == 0 {
		return actor, nil
	}

	if err := s.users.UpdateFields(ctx, actor.ID, fields); err != nil {
		return nil, err
	}
	s.activity.Record(ctx, actor.ID, ActionUpdateProfile, "", nil)
	return actor, nil
}

// SetProfileImage stores the avatar reference.
func (s *IdentityService) SetProfileImage(ctx context.Context, actor *models.User, image string) (*models.User, error) {
	image = strings.TrimSpace(image)
	if image == "" {
		return nil, models.NewValidationError("Image required")
	}
	if err := s.users.UpdateFields(ctx, actor.ID, map[string]interface{}{"profile_image": image}); err != nil {
		return nil, err
	}
	actor.ProfileImage = image
	s.activity.Record(ctx, actor.ID, ActionUpdateProfileImage, "", nil)
	return actor, nil
}

// SaveDraft keeps one draft per user under the same rules as a post body.
func (s *IdentityService) SaveDraft(ctx context.Context, actor *models.User, content string) (string, error) {
	if err := s.policy.CheckContent(actor, content); err != nil {
		return "", err
	}
	if err := s.users.UpdateFields(ctx, actor.ID, map[string]interface{}{"draft": content}); err != nil {
		return "", err
	}
	actor.Draft = content
	s.activity.Record(ctx, actor.ID, ActionSaveDraft, "", nil)
	return content, nil
}

// Profile is the view of username as seen by viewer.
func (s *IdentityService) Profile(ctx context.Context, viewer *models.User, username string) (*models.UserProfile, error) {
	target, err := s.users.GetByUsername(ctx, username)
	if err != nil {
		return nil, err
	}
	if target == nil {
		banned, err := s.users.IsBanned(ctx, username)
		if err != nil {
			return nil, err
		}
		if banned {
			return nil, models.NewForbiddenError("User is banned")
		}
		return nil, models.NewNotFoundError("User not found")
	}
	if target.ID != viewer.ID {
		blocked, err := s.graph.HasBlocked(ctx, viewer.ID, target.ID)
		if err != nil {
			return nil, err
		}
		if blocked {
			return nil, models.NewForbiddenError("User blocked")
		}
	}
	return s.buildProfile(ctx, target, target.ID == viewer.ID)
}

// Me is the caller's own profile including the block list.
func (s *IdentityService) Me(ctx context.Context, actor *models.User) (*models.UserProfile, error) {
	return s.buildProfile(ctx, actor, true)
}

func (s *IdentityService) buildProfile(ctx context.Context, user *models.User, self bool) (*models.UserProfile, error) {
	following, err := s.graph.FollowingUsernames(ctx, user.ID)
	if err != nil {
		return nil, err
	}
	followers, err := s.graph.FollowerUsernames(ctx, user.ID)
	if err != nil {
		return nil, err
	}
	posts, err := s.posts.ListByUser(ctx, user.ID, RecentPostsLimit)
	if err != nil {
		return nil, err
	}

	profile := &models.UserProfile{
		ID:           user.ID,
		Username:     user.Username,
		IsAdmin:      user.IsAdmin,
		Verified:     user.Verified,
		Bio:          user.Bio,
		ThemeColor:   user.ThemeColor,
		ProfileImage: user.ProfileImage,
		Following:    following,
		Followers:    followers,
		Posts:        posts,
		CreatedAt:    user.CreatedAt,
	}
	if self {
		blocked, err := s.graph.BlockedUsernames(ctx, user.ID)
		if err != nil {
			return nil, err
		}
		profile.Blocked = blocked
	}
	return profile, nil
}
