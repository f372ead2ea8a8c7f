package config

import "fmt"

// GetNamespace returns the namespace with the given ID and whether it was found.
func (c *Config) GetNamespace(id string) (NamespaceConfig, bool) {
	for _, ns := range c.Namespaces {
		if ns.ID == id {
			return ns, true
		}
	}
	return NamespaceConfig{}, false
}

// FindNamespaceByID returns a pointer to a copy of the namespace with the
// given ID, or nil if not found.
func (c *Config) FindNamespaceByID(id string) *NamespaceConfig {
	for i := range c.Namespaces {
		if c.Namespaces[i].ID == id {
			ns := c.Namespaces[i]
			return &ns
		}
	}
	return nil
}

// FindNamespaceByName returns a pointer to a copy of the namespace with the
// given name, or nil if not found.
func (c *Config) FindNamespaceByName(name string) *NamespaceConfig {
	for i := range c.Namespaces {
		if c.Namespaces[i].Name == name {
			ns := c.Namespaces[i]
			return &ns
		}
	}
	return nil
}

// AddNamespace adds a new namespace to the config, generating an ID if
// needed and rejecting a name collision.
func (c *Config) AddNamespace(ns NamespaceConfig) (string, error) {
	for _, existing := range c.Namespaces {
		if existing.Name == ns.Name {
			return "", fmt.Errorf("namespace name %q already exists", ns.Name)
		}
	}

	if ns.ID == "" {
		for {
			ns.ID = GenerateID()
			if _, exists := c.GetNamespace(ns.ID); !exists {
				break
			}
		}
	}

	if err := ValidateID(ns.ID); err != nil {
		return "", fmt.Errorf("invalid id: %w", err)
	}
	if _, exists := c.GetNamespace(ns.ID); exists {
		return "", fmt.Errorf("namespace id %q already exists", ns.ID)
	}

	if ns.ServerIDs == nil {
		ns.ServerIDs = []string{}
	}
	c.Namespaces = append(c.Namespaces, ns)
	return ns.ID, nil
}

// UpdateNamespace replaces the namespace matching ns.ID with ns, rejecting
// a rename that collides with a different namespace's name.
func (c *Config) UpdateNamespace(ns NamespaceConfig) error {
	for i := range c.Namespaces {
		if c.Namespaces[i].ID != ns.ID && c.Namespaces[i].Name == ns.Name {
			return fmt.Errorf("namespace name %q already exists", ns.Name)
		}
	}

	for i := range c.Namespaces {
		if c.Namespaces[i].ID == ns.ID {
			c.Namespaces[i] = ns
			return nil
		}
	}
	return fmt.Errorf("namespace %q not found", ns.ID)
}

// DeleteNamespaceByName deletes the namespace with the given name, cascading
// the deletion to its tool permissions and clearing DefaultNamespaceID if it
// pointed at the deleted namespace.
func (c *Config) DeleteNamespaceByName(name string) error {
	ns := c.FindNamespaceByName(name)
	if ns == nil {
		return fmt.Errorf("namespace %q not found", name)
	}

	filtered := make([]NamespaceConfig, 0, len(c.Namespaces))
	for _, existing := range c.Namespaces {
		if existing.ID != ns.ID {
			filtered = append(filtered, existing)
		}
	}
	c.Namespaces = filtered

	permissions := make([]ToolPermission, 0, len(c.ToolPermissions))
	for _, tp := range c.ToolPermissions {
		if tp.NamespaceID != ns.ID {
			permissions = append(permissions, tp)
		}
	}
	c.ToolPermissions = permissions

	if c.DefaultNamespaceID == ns.ID {
		c.DefaultNamespaceID = ""
	}
	return nil
}

// AssignServerToNamespace adds serverID to namespaceID's ServerIDs.
// Assigning an already-assigned server is a no-op.
func (c *Config) AssignServerToNamespace(namespaceID, serverID string) error {
	if c.GetServer(serverID) == nil {
		return fmt.Errorf("server %q not found", serverID)
	}

	for i := range c.Namespaces {
		if c.Namespaces[i].ID != namespaceID {
			continue
		}
		for _, existing := range c.Namespaces[i].ServerIDs {
			if existing == serverID {
				return nil
			}
		}
		c.Namespaces[i].ServerIDs = append(c.Namespaces[i].ServerIDs, serverID)
		return nil
	}
	return fmt.Errorf("namespace %q not found", namespaceID)
}

// UnassignServerFromNamespace removes serverID from namespaceID's ServerIDs.
func (c *Config) UnassignServerFromNamespace(namespaceID, serverID string) error {
	for i := range c.Namespaces {
		if c.Namespaces[i].ID == namespaceID {
			c.Namespaces[i].ServerIDs = removeString(c.Namespaces[i].ServerIDs, serverID)
			return nil
		}
	}
	return fmt.Errorf("namespace %q not found", namespaceID)
}

// SetToolPermission sets (or updates, if already present) the enabled state
// of one tool within one namespace/server pair.
func (c *Config) SetToolPermission(namespaceID, serverID, toolName string, enabled bool) error {
	if _, ok := c.GetNamespace(namespaceID); !ok {
		return fmt.Errorf("namespace %q not found", namespaceID)
	}
	if c.GetServer(serverID) == nil {
		return fmt.Errorf("server %q not found", serverID)
	}

	for i := range c.ToolPermissions {
		tp := &c.ToolPermissions[i]
		if tp.NamespaceID == namespaceID && tp.ServerID == serverID && tp.ToolName == toolName {
			tp.Enabled = enabled
			return nil
		}
	}

	c.ToolPermissions = append(c.ToolPermissions, ToolPermission{
		NamespaceID: namespaceID,
		ServerID:    serverID,
		ToolName:    toolName,
		Enabled:     enabled,
	})
	return nil
}

// UnsetToolPermission removes the permission entry for namespaceID/serverID/
// toolName, if one exists. Removing a non-existent entry is not an error.
func (c *Config) UnsetToolPermission(namespaceID, serverID, toolName string) error {
	filtered := make([]ToolPermission, 0, len(c.ToolPermissions))
	for _, tp := range c.ToolPermissions {
		if tp.NamespaceID == namespaceID && tp.ServerID == serverID && tp.ToolName == toolName {
			continue
		}
		filtered = append(filtered, tp)
	}
	c.ToolPermissions = filtered
	return nil
}

// GetToolPermission returns the explicit enabled state for namespaceID/
// serverID/toolName and whether an explicit entry exists at all.
func (c *Config) GetToolPermission(namespaceID, serverID, toolName string) (enabled bool, found bool) {
	for _, tp := range c.ToolPermissions {
		if tp.NamespaceID == namespaceID && tp.ServerID == serverID && tp.ToolName == toolName {
			return tp.Enabled, true
		}
	}
	return false, false
}

// GetToolPermissionsForNamespace returns every explicit tool permission
// entry scoped to namespaceID.
func (c *Config) GetToolPermissionsForNamespace(namespaceID string) []ToolPermission {
	var result []ToolPermission
	for _, tp := range c.ToolPermissions {
		if tp.NamespaceID == namespaceID {
			result = append(result, tp)
		}
	}
	return result
}
