package mcp

import (
	"context"
	"fmt"

	sdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"wardrobe/internal/instanceid"
	"wardrobe/internal/outfit"
	"wardrobe/internal/slots"
)

type GetOutfitInput struct {
	Kind        string `json:"kind,omitempty" jsonschema:"bot or user, default bot"`
	CharacterID string `json:"character_id,omitempty" jsonschema:"character id, required for bot outfits"`
	InstanceID  string `json:"instance_id" jsonschema:"conversation instance id"`
}

type OutfitOutput struct {
	Kind                   string            `json:"kind"`
	CharacterID            string            `json:"character_id,omitempty"`
	InstanceID             string            `json:"instance_id"`
	Slots                  map[string]string `json:"slots"`
	PromptInjectionEnabled bool              `json:"prompt_injection_enabled"`
}

type SetOutfitItemInput struct {
	Kind          string `json:"kind,omitempty" jsonschema:"bot or user, default bot"`
	CharacterID   string `json:"character_id,omitempty" jsonschema:"character id, required for bot outfits"`
	CharacterName string `json:"character_name,omitempty" jsonschema:"display name for transition messages, defaults to the id"`
	InstanceID    string `json:"instance_id" jsonschema:"conversation instance id"`
	Slot          string `json:"slot" jsonschema:"canonical slot name"`
	Value         string `json:"value" jsonschema:"item description"`
}

type RemoveOutfitItemInput struct {
	Kind          string `json:"kind,omitempty" jsonschema:"bot or user, default bot"`
	CharacterID   string `json:"character_id,omitempty" jsonschema:"character id, required for bot outfits"`
	CharacterName string `json:"character_name,omitempty" jsonschema:"display name for transition messages, defaults to the id"`
	InstanceID    string `json:"instance_id" jsonschema:"conversation instance id"`
	Slot          string `json:"slot" jsonschema:"canonical slot name"`
}

type MutationOutput struct {
	Message string            `json:"message,omitempty"`
	Slots   map[string]string `json:"slots"`
}

type ListSlotsInput struct{}

type ListSlotsOutput struct {
	Clothing    []string `json:"clothing"`
	Accessories []string `json:"accessories"`
}

type ListPresetsInput struct {
	Kind        string `json:"kind,omitempty" jsonschema:"bot or user, default bot"`
	CharacterID string `json:"character_id,omitempty" jsonschema:"character id, required for bot presets"`
	InstanceID  string `json:"instance_id" jsonschema:"conversation instance id"`
}

type ListPresetsOutput struct {
	Presets []string `json:"presets"`
}

type SavePresetInput struct {
	Kind        string `json:"kind,omitempty" jsonschema:"bot or user, default bot"`
	CharacterID string `json:"character_id,omitempty" jsonschema:"character id, required for bot presets"`
	InstanceID  string `json:"instance_id" jsonschema:"conversation instance id"`
	Name        string `json:"name" jsonschema:"preset name"`
	Overwrite   bool   `json:"overwrite,omitempty" jsonschema:"replace an existing preset of the same name"`
}

type SavePresetOutput struct {
	Saved bool `json:"saved"`
}

type LoadPresetInput struct {
	Kind          string `json:"kind,omitempty" jsonschema:"bot or user, default bot"`
	CharacterID   string `json:"character_id,omitempty" jsonschema:"character id, required for bot presets"`
	CharacterName string `json:"character_name,omitempty" jsonschema:"display name for transition messages, defaults to the id"`
	InstanceID    string `json:"instance_id" jsonschema:"conversation instance id"`
	Name          string `json:"name" jsonschema:"preset name"`
}

type LoadPresetOutput struct {
	Messages []string          `json:"messages"`
	Slots    map[string]string `json:"slots"`
}

type DeletePresetInput struct {
	Kind        string `json:"kind,omitempty" jsonschema:"bot or user, default bot"`
	CharacterID string `json:"character_id,omitempty" jsonschema:"character id, required for bot presets"`
	InstanceID  string `json:"instance_id" jsonschema:"conversation instance id"`
	Name        string `json:"name" jsonschema:"preset name"`
}

type DeletePresetOutput struct {
	Deleted bool `json:"deleted"`
}

type ResolveTextInput struct {
	Text string `json:"text" jsonschema:"text containing outfit placeholders"`
}

type ResolveTextOutput struct {
	Text string `json:"text"`
}

type DeriveInstanceIDInput struct {
	Text        string `json:"text" jsonschema:"first bot message of the conversation"`
	CharacterID string `json:"character_id,omitempty" jsonschema:"character whose known outfit values to strip"`
}

type DeriveInstanceIDOutput struct {
	InstanceID string `json:"instance_id"`
}

type WipeAllInput struct {
	Confirm bool `json:"confirm" jsonschema:"must be true to wipe"`
}

type WipeAllOutput struct {
	Wiped bool `json:"wiped"`
}

func (s *Server) registerTools() {
	sdk.AddTool(s.mcp, &sdk.Tool{
		Name:        "get_outfit",
		Description: "Read the outfit for a conversation instance",
	}, s.handleGetOutfit)

	sdk.AddTool(s.mcp, &sdk.Tool{
		Name:        "set_outfit_item",
		Description: "Set one outfit slot to a value",
	}, s.handleSetOutfitItem)

	sdk.AddTool(s.mcp, &sdk.Tool{
		Name:        "remove_outfit_item",
		Description: "Clear one outfit slot",
	}, s.handleRemoveOutfitItem)

	sdk.AddTool(s.mcp, &sdk.Tool{
		Name:        "list_slots",
		Description: "List the canonical clothing and accessory slots",
	}, s.handleListSlots)

	sdk.AddTool(s.mcp, &sdk.Tool{
		Name:        "list_presets",
		Description: "List saved outfit presets for an instance",
	}, s.handleListPresets)

	sdk.AddTool(s.mcp, &sdk.Tool{
		Name:        "save_preset",
		Description: "Save the current outfit as a named preset",
	}, s.handleSavePreset)

	sdk.AddTool(s.mcp, &sdk.Tool{
		Name:        "load_preset",
		Description: "Apply a named preset to the current outfit",
	}, s.handleLoadPreset)

	sdk.AddTool(s.mcp, &sdk.Tool{
		Name:        "delete_preset",
		Description: "Delete a named outfit preset",
	}, s.handleDeletePreset)

	sdk.AddTool(s.mcp, &sdk.Tool{
		Name:        "resolve_text",
		Description: "Resolve outfit placeholders in text against live state",
	}, s.handleResolveText)

	sdk.AddTool(s.mcp, &sdk.Tool{
		Name:        "derive_instance_id",
		Description: "Derive the deterministic instance id for a first message",
	}, s.handleDeriveInstanceID)

	sdk.AddTool(s.mcp, &sdk.Tool{
		Name:        "wipe_all",
		Description: "Erase all outfit instances and presets",
	}, s.handleWipeAll)
}

// manager addresses an outfit Manager from tool input. characterName
// feeds transition messages and falls back to the id when the caller
// does not supply one.
func (s *Server) manager(kind, characterID, characterName, instanceID string) (*outfit.Manager, error) {
	if instanceID == "" {
		return nil, fmt.Errorf("instance_id is required")
	}
	switch kind {
	case "", "bot":
		if characterID == "" {
			return nil, fmt.Errorf("character_id is required for bot outfits")
		}
		if characterName == "" {
			characterName = characterID
		}
		m := outfit.NewBotManager(s.store, characterID, characterName, s.logger)
		m.SetInstanceID(instanceID)
		return m, nil
	case "user":
		m := outfit.NewUserManager(s.store, "User", s.logger)
		m.SetInstanceID(instanceID)
		return m, nil
	}
	return nil, fmt.Errorf("unknown kind %q", kind)
}

func (s *Server) handleGetOutfit(ctx context.Context, req *sdk.CallToolRequest, input GetOutfitInput) (*sdk.CallToolResult, OutfitOutput, error) {
	m, err := s.manager(input.Kind, input.CharacterID, "", input.InstanceID)
	if err != nil {
		return nil, OutfitOutput{}, err
	}
	injection := true
	if m.Kind() == outfit.KindBot {
		injection = s.store.PromptInjectionEnabled(input.CharacterID, input.InstanceID)
	}
	return nil, OutfitOutput{
		Kind:                   string(m.Kind()),
		CharacterID:            input.CharacterID,
		InstanceID:             input.InstanceID,
		Slots:                  m.Values(),
		PromptInjectionEnabled: injection,
	}, nil
}

func (s *Server) handleSetOutfitItem(ctx context.Context, req *sdk.CallToolRequest, input SetOutfitItemInput) (*sdk.CallToolResult, MutationOutput, error) {
	m, err := s.manager(input.Kind, input.CharacterID, input.CharacterName, input.InstanceID)
	if err != nil {
		return nil, MutationOutput{}, err
	}
	msg, err := m.SetOutfitItem(input.Slot, input.Value)
	if err != nil {
		return nil, MutationOutput{}, err
	}
	return nil, MutationOutput{Message: msg, Slots: m.Values()}, nil
}

func (s *Server) handleRemoveOutfitItem(ctx context.Context, req *sdk.CallToolRequest, input RemoveOutfitItemInput) (*sdk.CallToolResult, MutationOutput, error) {
	m, err := s.manager(input.Kind, input.CharacterID, input.CharacterName, input.InstanceID)
	if err != nil {
		return nil, MutationOutput{}, err
	}
	msg, err := m.SetOutfitItem(input.Slot, slots.None)
	if err != nil {
		return nil, MutationOutput{}, err
	}
	return nil, MutationOutput{Message: msg, Slots: m.Values()}, nil
}

func (s *Server) handleListSlots(ctx context.Context, req *sdk.CallToolRequest, input ListSlotsInput) (*sdk.CallToolResult, ListSlotsOutput, error) {
	return nil, ListSlotsOutput{
		Clothing:    slots.Clothing(),
		Accessories: slots.Accessories(),
	}, nil
}

func (s *Server) handleListPresets(ctx context.Context, req *sdk.CallToolRequest, input ListPresetsInput) (*sdk.CallToolResult, ListPresetsOutput, error) {
	m, err := s.manager(input.Kind, input.CharacterID, "", input.InstanceID)
	if err != nil {
		return nil, ListPresetsOutput{}, err
	}
	return nil, ListPresetsOutput{Presets: m.Presets()}, nil
}

func (s *Server) handleSavePreset(ctx context.Context, req *sdk.CallToolRequest, input SavePresetInput) (*sdk.CallToolResult, SavePresetOutput, error) {
	if input.Name == "" {
		return nil, SavePresetOutput{}, fmt.Errorf("name is required")
	}
	m, err := s.manager(input.Kind, input.CharacterID, "", input.InstanceID)
	if err != nil {
		return nil, SavePresetOutput{}, err
	}
	exists := s.store.GetPreset(m.Kind(), input.CharacterID, input.InstanceID, input.Name) != nil
	if exists && !input.Overwrite {
		return nil, SavePresetOutput{}, fmt.Errorf("preset %q already exists", input.Name)
	}
	if err := m.SavePreset(input.Name); err != nil {
		return nil, SavePresetOutput{}, err
	}
	return nil, SavePresetOutput{Saved: true}, nil
}

func (s *Server) handleLoadPreset(ctx context.Context, req *sdk.CallToolRequest, input LoadPresetInput) (*sdk.CallToolResult, LoadPresetOutput, error) {
	if input.Name == "" {
		return nil, LoadPresetOutput{}, fmt.Errorf("name is required")
	}
	m, err := s.manager(input.Kind, input.CharacterID, input.CharacterName, input.InstanceID)
	if err != nil {
		return nil, LoadPresetOutput{}, err
	}
	messages, err := m.LoadPreset(input.Name)
	if err != nil {
		return nil, LoadPresetOutput{}, err
	}
	return nil, LoadPresetOutput{Messages: messages, Slots: m.Values()}, nil
}

func (s *Server) handleDeletePreset(ctx context.Context, req *sdk.CallToolRequest, input DeletePresetInput) (*sdk.CallToolResult, DeletePresetOutput, error) {
	if input.Name == "" {
		return nil, DeletePresetOutput{}, fmt.Errorf("name is required")
	}
	m, err := s.manager(input.Kind, input.CharacterID, "", input.InstanceID)
	if err != nil {
		return nil, DeletePresetOutput{}, err
	}
	if err := m.DeletePreset(input.Name); err != nil {
		return nil, DeletePresetOutput{}, err
	}
	return nil, DeletePresetOutput{Deleted: true}, nil
}

func (s *Server) handleResolveText(ctx context.Context, req *sdk.CallToolRequest, input ResolveTextInput) (*sdk.CallToolResult, ResolveTextOutput, error) {
	if s.macros == nil {
		return nil, ResolveTextOutput{}, fmt.Errorf("macro resolution is not configured")
	}
	return nil, ResolveTextOutput{Text: s.macros.ResolveText(input.Text)}, nil
}

func (s *Server) handleDeriveInstanceID(ctx context.Context, req *sdk.CallToolRequest, input DeriveInstanceIDInput) (*sdk.CallToolResult, DeriveInstanceIDOutput, error) {
	gen := &instanceid.Generator{}
	if input.CharacterID != "" {
		charID := input.CharacterID
		gen.Known = func() []string { return s.store.KnownValues(charID) }
	}
	return nil, DeriveInstanceIDOutput{InstanceID: gen.Derive(input.Text)}, nil
}

func (s *Server) handleWipeAll(ctx context.Context, req *sdk.CallToolRequest, input WipeAllInput) (*sdk.CallToolResult, WipeAllOutput, error) {
	if !input.Confirm {
		return nil, WipeAllOutput{}, fmt.Errorf("confirm must be true")
	}
	s.store.WipeAll()
	if err := s.store.SaveState(ctx); err != nil {
		return nil, WipeAllOutput{}, fmt.Errorf("persisting wipe: %w", err)
	}
	return nil, WipeAllOutput{Wiped: true}, nil
}
