package db

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sort"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/google/uuid"
	"github.com/nebari-dev/bastion/internal/models"
	"github.com/nebari-dev/bastion/internal/rbac"
	"github.com/nebari-dev/bastion/internal/service"
	"gopkg.in/yaml.v3"
	"gorm.io/gorm"
)

// BootstrapOptions controls what Bootstrap seeds beyond the system catalog.
type BootstrapOptions struct {
	// CatalogFiles is a doublestar glob of YAML catalog files.
	CatalogFiles  string
	AdminUsername string
	AdminEmail    string
	AdminPassword string
}

// Catalog is the YAML layout of a catalog file.
type Catalog struct {
	Permissions []CatalogPermission `yaml:"permissions"`
	Roles       []CatalogRole       `yaml:"roles"`
}

// CatalogPermission declares a permission.
type CatalogPermission struct {
	Name        string `yaml:"name"`
	DisplayName string `yaml:"display_name"`
	Description string `yaml:"description"`
	Module      string `yaml:"module"`
}

// CatalogRole declares a role and the permissions it is granted.
type CatalogRole struct {
	Name         string         `yaml:"name"`
	DisplayName  string         `yaml:"display_name"`
	Description  string         `yaml:"description"`
	Module       string         `yaml:"module"`
	DisplayOrder *int           `yaml:"display_order"`
	Grants       []CatalogGrant `yaml:"permissions"`
}

// CatalogGrant names a permission granted to a role within a module.
type CatalogGrant struct {
	Name   string `yaml:"name"`
	Module string `yaml:"module"`
}

var systemPermissions = []service.CreatePermissionRequest{
	{Name: models.PermissionFullAdminAccess, DisplayName: "Full admin access", Description: "Grants every permission in every module"},
	{Name: models.PermissionAccessAdminPanel, DisplayName: "Access admin panel", Description: "Enter the admin area"},
	{Name: models.PermissionManageUsers, DisplayName: "Manage users", Description: "Create, edit, delete and assign roles to users"},
	{Name: models.PermissionManageRoles, DisplayName: "Manage roles", Description: "Create, edit, delete roles and grant permissions"},
	{Name: models.PermissionManagePermissions, DisplayName: "Manage permissions", Description: "Create, edit and delete permissions"},
	{Name: models.PermissionViewAuditLog, DisplayName: "View audit log", Description: "Read the audit log"},
}

// seeder carries the stores used while bootstrapping.
type seeder struct {
	db     *gorm.DB
	users  *service.UserService
	roles  *service.RoleService
	perms  *service.PermissionService
	graph  *rbac.Graph
	logger *slog.Logger
}

// Bootstrap seeds the system permissions, the administrator role, the
// optional catalog files and the optional admin user. Every step is
// insert-if-absent, so running it on each start is safe.
func Bootstrap(ctx context.Context, db *gorm.DB, opts BootstrapOptions, logger *slog.Logger) error {
	if logger == nil {
		logger = slog.Default()
	}
	s := &seeder{
		db:     db,
		users:  service.NewUserService(db, logger),
		roles:  service.NewRoleService(db, logger),
		perms:  service.NewPermissionService(db, logger),
		graph:  rbac.NewGraph(db, logger),
		logger: logger,
	}

	catalogs, err := LoadCatalogs(opts.CatalogFiles)
	if err != nil {
		return err
	}

	return service.RunInTx(ctx, db, func(txCtx context.Context) error {
		admin, err := s.seedSystemCatalog(txCtx)
		if err != nil {
			return err
		}
		for _, c := range catalogs {
			if err := s.seedCatalog(txCtx, c); err != nil {
				return err
			}
		}
		return s.seedAdmin(txCtx, admin, opts)
	})
}

// LoadCatalogs reads every file matching pattern in lexical order. An empty
// pattern yields no catalogs.
func LoadCatalogs(pattern string) ([]Catalog, error) {
	if pattern == "" {
		return nil, nil
	}
	paths, err := doublestar.FilepathGlob(pattern)
	if err != nil {
		return nil, fmt.Errorf("invalid catalog pattern %q: %w", pattern, err)
	}
	sort.Strings(paths)

	catalogs := make([]Catalog, 0, len(paths))
	for _, path := range paths {
		c, err := readCatalog(path)
		if err != nil {
			return nil, err
		}
		catalogs = append(catalogs, c)
	}
	return catalogs, nil
}

func readCatalog(path string) (Catalog, error) {
	var c Catalog
	f, err := os.Open(path)
	if err != nil {
		return c, fmt.Errorf("open catalog %s: %w", path, err)
	}
	defer f.Close()

	dec := yaml.NewDecoder(f)
	dec.KnownFields(true)
	if err := dec.Decode(&c); err != nil {
		if errors.Is(err, io.EOF) {
			return c, nil
		}
		return c, fmt.Errorf("parse catalog %s: %w", path, err)
	}
	return c, nil
}

func (s *seeder) seedSystemCatalog(ctx context.Context) (*models.Role, error) {
	var superuser *models.Permission
	for _, req := range systemPermissions {
		req.IsSystem = true
		p, err := s.ensurePermission(ctx, req)
		if err != nil {
			return nil, err
		}
		if p.Name == models.PermissionFullAdminAccess {
			superuser = p
		}
	}

	admin, err := s.ensureRole(ctx, service.CreateRoleRequest{
		Name:        models.AdministratorRole,
		DisplayName: "Administrator",
		Description: "Unrestricted access to everything",
		IsSystem:    true,
	})
	if err != nil {
		return nil, err
	}
	if err := s.graph.AssignPermission(ctx, admin.ID, superuser.ID, uuid.Nil, "", true); err != nil {
		return nil, fmt.Errorf("grant %s to %s: %w", superuser.Name, admin.Name, err)
	}
	return admin, nil
}

func (s *seeder) seedCatalog(ctx context.Context, c Catalog) error {
	for _, cp := range c.Permissions {
		_, err := s.ensurePermission(ctx, service.CreatePermissionRequest{
			Name:        cp.Name,
			DisplayName: cp.DisplayName,
			Description: cp.Description,
			Module:      cp.Module,
		})
		if err != nil {
			return err
		}
	}

	for _, cr := range c.Roles {
		role, err := s.ensureRole(ctx, service.CreateRoleRequest{
			Name:         cr.Name,
			DisplayName:  cr.DisplayName,
			Description:  cr.Description,
			Module:       cr.Module,
			DisplayOrder: cr.DisplayOrder,
		})
		if err != nil {
			return err
		}
		if role.IsDeleted {
			continue
		}
		for _, g := range cr.Grants {
			var perm models.Permission
			if err := service.GetDB(ctx, s.db).Where("name = ?", g.Name).First(&perm).Error; err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return fmt.Errorf("role %s grants unknown permission %s", cr.Name, g.Name)
				}
				return fmt.Errorf("look up permission %s: %w", g.Name, err)
			}
			if perm.IsDeleted {
				s.logger.Warn("Skipping grant of deleted permission", "role", cr.Name, "permission", g.Name)
				continue
			}
			if err := s.graph.AssignPermission(ctx, role.ID, perm.ID, uuid.Nil, g.Module, false); err != nil {
				return fmt.Errorf("grant %s to %s: %w", g.Name, cr.Name, err)
			}
		}
	}
	return nil
}

// seedAdmin creates the configured admin user as a system user holding the
// administrator role. An existing user with that name is only given the role.
func (s *seeder) seedAdmin(ctx context.Context, admin *models.Role, opts BootstrapOptions) error {
	if opts.AdminUsername == "" {
		s.logger.Debug("No bootstrap admin configured, skipping admin creation")
		return nil
	}

	user, err := s.users.GetByUsername(ctx, opts.AdminUsername)
	if errors.Is(err, service.ErrNotFound) {
		email := opts.AdminEmail
		if email == "" {
			email = fmt.Sprintf("%s@bastion.local", opts.AdminUsername)
		}
		user, err = s.users.Create(ctx, service.CreateUserRequest{
			Username: opts.AdminUsername,
			Email:    email,
			Password: opts.AdminPassword,
			IsSystem: true,
		}, uuid.Nil)
		if err != nil {
			return fmt.Errorf("failed to create admin user: %w", err)
		}
		s.logger.Info("Default admin user created", "username", user.Username, "email", user.Email)
	} else if err != nil {
		return fmt.Errorf("failed to look up admin user: %w", err)
	}

	if err := s.graph.AssignRole(ctx, user.ID, admin.ID, "", true, uuid.Nil); err != nil {
		return fmt.Errorf("failed to grant administrator role: %w", err)
	}
	return nil
}

// ensurePermission returns the permission with req.Name, creating it when no
// row (deleted or not) uses the name.
func (s *seeder) ensurePermission(ctx context.Context, req service.CreatePermissionRequest) (*models.Permission, error) {
	var existing models.Permission
	err := service.GetDB(ctx, s.db).Where("name = ?", req.Name).First(&existing).Error
	if err == nil {
		return &existing, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("look up permission %s: %w", req.Name, err)
	}
	p, err := s.perms.Create(ctx, req, uuid.Nil)
	if err != nil {
		return nil, fmt.Errorf("seed permission %s: %w", req.Name, err)
	}
	return p, nil
}

// ensureRole is ensurePermission for roles.
func (s *seeder) ensureRole(ctx context.Context, req service.CreateRoleRequest) (*models.Role, error) {
	var existing models.Role
	err := service.GetDB(ctx, s.db).Where("name = ?", req.Name).First(&existing).Error
	if err == nil {
		if existing.IsDeleted {
			s.logger.Warn("Catalog role is in the recycle bin, leaving it there", "role", req.Name)
		}
		return &existing, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("look up role %s: %w", req.Name, err)
	}
	r, err := s.roles.Create(ctx, req, uuid.Nil)
	if err != nil {
		return nil, fmt.Errorf("seed role %s: %w", req.Name, err)
	}
	return r, nil
}
