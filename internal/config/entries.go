package config

import "fmt"

// NamespaceEntry pairs a namespace with the name the CLI indexes it by.
type NamespaceEntry struct {
	Name   string
	Config NamespaceConfig
}

// NamespaceEntries returns every namespace as a NamespaceEntry.
func (c *Config) NamespaceEntries() []NamespaceEntry {
	entries := make([]NamespaceEntry, len(c.Namespaces))
	for i, ns := range c.Namespaces {
		entries[i] = NamespaceEntry{Name: ns.Name, Config: ns}
	}
	return entries
}

// ServerEntry pairs a server with the name the CLI indexes it by.
type ServerEntry struct {
	Name   string
	Config ServerConfig
}

// ServerEntries returns every server as a ServerEntry.
func (c *Config) ServerEntries() []ServerEntry {
	entries := make([]ServerEntry, 0, len(c.Servers))
	for _, s := range c.Servers {
		entries = append(entries, ServerEntry{Name: s.Name, Config: s})
	}
	return entries
}

// RenameServer renames the server found by oldName to newName, rejecting a
// collision with another server's name.
func (c *Config) RenameServer(oldName, newName string) error {
	srv := c.FindServerByName(oldName)
	if srv == nil {
		return fmt.Errorf("server %q not found", oldName)
	}
	if oldName != newName {
		if existing := c.FindServerByName(newName); existing != nil {
			return fmt.Errorf("server name %q already exists", newName)
		}
	}
	srv.Name = newName
	c.Servers[srv.ID] = *srv
	return nil
}

// RenameNamespace renames the namespace found by oldName to newName,
// rejecting a collision with another namespace's name.
func (c *Config) RenameNamespace(oldName, newName string) error {
	ns := c.FindNamespaceByName(oldName)
	if ns == nil {
		return fmt.Errorf("namespace %q not found", oldName)
	}
	updated := *ns
	updated.Name = newName
	return c.UpdateNamespace(updated)
}
