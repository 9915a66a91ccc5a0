package executor

import (
	"context"
	"fmt"

	"github.com/browserwing/locator/pkg/logger"
	"github.com/browserwing/locator/pkg/textmatch"
	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"
)

// SemanticTree 页面的语义树（基于 Accessibility Tree）
type SemanticTree struct {
	// 按 AX 树顺序排列
	Nodes []*SemanticNode
	byID  map[proto.AccessibilityAXNodeID]*SemanticNode
}

// SemanticNode 语义节点
type SemanticNode struct {
	AXNodeID      proto.AccessibilityAXNodeID
	BackendNodeID proto.DOMBackendNodeID
	Role          string
	Name          string
	Description   string
	Value         string
	Placeholder   string
	Ignored       bool
	Disabled      bool
}

// Label 节点用于匹配的文本：名称 > placeholder > 描述 > 值
func (n *SemanticNode) Label() string {
	for _, s := range []string{n.Name, n.Placeholder, n.Description, n.Value} {
		if s != "" {
			return s
		}
	}
	return ""
}

var clickableRoles = map[string]bool{
	"button":           true,
	"link":             true,
	"menuitem":         true,
	"menuitemcheckbox": true,
	"menuitemradio":    true,
	"tab":              true,
	"checkbox":         true,
	"radio":            true,
	"switch":           true,
	"treeitem":         true,
	"option":           true,
}

var inputRoles = map[string]bool{
	"textbox":    true,
	"searchbox":  true,
	"combobox":   true,
	"spinbutton": true,
}

// ExtractSemanticTree 从页面提取语义树
func ExtractSemanticTree(ctx context.Context, page *rod.Page) (*SemanticTree, error) {
	// 先禁用再启用，确保状态干净
	_ = proto.AccessibilityDisable{}.Call(page)
	if err := (proto.AccessibilityEnable{}).Call(page); err != nil {
		return nil, fmt.Errorf("failed to enable accessibility: %w", err)
	}
	defer func() {
		_ = proto.AccessibilityDisable{}.Call(page)
	}()

	axTree, err := proto.AccessibilityGetFullAXTree{}.Call(page)
	if err != nil {
		return nil, fmt.Errorf("failed to get accessibility tree: %w", err)
	}
	logger.Debug(ctx, "Got AX tree with %d nodes", len(axTree.Nodes))

	tree := &SemanticTree{
		Nodes: make([]*SemanticNode, 0, len(axTree.Nodes)),
		byID:  make(map[proto.AccessibilityAXNodeID]*SemanticNode, len(axTree.Nodes)),
	}
	for _, axNode := range axTree.Nodes {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		node := buildSemanticNode(axNode)
		tree.Nodes = append(tree.Nodes, node)
		tree.byID[node.AXNodeID] = node
	}
	return tree, nil
}

func buildSemanticNode(axNode *proto.AccessibilityAXNode) *SemanticNode {
	node := &SemanticNode{
		AXNodeID:      axNode.NodeID,
		BackendNodeID: axNode.BackendDOMNodeID,
		Role:          getAXValueString(axNode.Role),
		Name:          getAXValueString(axNode.Name),
		Description:   getAXValueString(axNode.Description),
		Value:         getAXValueString(axNode.Value),
		Ignored:       axNode.Ignored,
	}

	for _, prop := range axNode.Properties {
		value := getAXValueString(prop.Value)
		switch string(prop.Name) {
		case "placeholder":
			node.Placeholder = value
		case "disabled":
			node.Disabled = value == "true"
		}
	}
	return node
}

// getAXValueString AX 值的字符串形式
func getAXValueString(value *proto.AccessibilityAXValue) string {
	if value == nil {
		return ""
	}
	if str, ok := value.Value.Val().(string); ok {
		return str
	}
	if value.Value.Nil() {
		return ""
	}
	return value.Value.String()
}

// FindByID 按 AX 节点 ID 查找
func (tree *SemanticTree) FindByID(id proto.AccessibilityAXNodeID) *SemanticNode {
	return tree.byID[id]
}

// Elements 按角色筛选可操作的节点，保持树中的顺序
func (tree *SemanticTree) Elements(mode ElementMode) []*SemanticNode {
	roles := clickableRoles
	if mode == ElementModeInput {
		roles = inputRoles
	}

	result := make([]*SemanticNode, 0)
	for _, node := range tree.Nodes {
		// 被忽略或没有 BackendNodeID 的节点无法操作
		if node.Ignored || node.BackendNodeID == 0 || node.Disabled {
			continue
		}
		if roles[node.Role] {
			result = append(result, node)
		}
	}
	return result
}

// ResolveElement 通过 BackendNodeID 获取 rod 元素
func ResolveElement(page *rod.Page, node *SemanticNode) (*rod.Element, error) {
	if node.BackendNodeID == 0 {
		return nil, fmt.Errorf("node has no backend node ID")
	}

	obj, err := proto.DOMResolveNode{
		BackendNodeID: node.BackendNodeID,
	}.Call(page)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve backend node: %w", err)
	}
	if obj.Object.ObjectID == "" {
		return nil, fmt.Errorf("resolved object has no object ID")
	}

	return page.ElementFromObject(obj.Object)
}

// SemanticSupplier 通过 Accessibility Tree 采集候选元素
type SemanticSupplier struct {
	pages PageProvider
	mode  ElementMode
	opts  SupplierOptions
}

// NewSemanticSupplier 创建基于 Accessibility Tree 的候选元素采集器
func NewSemanticSupplier(pages PageProvider, mode ElementMode, opts *SupplierOptions) *SemanticSupplier {
	return &SemanticSupplier{
		pages: pages,
		mode:  mode,
		opts:  opts.withDefaults(),
	}
}

// Candidates 采集候选元素，无法解析为 DOM 元素的节点会被跳过
func (s *SemanticSupplier) Candidates(ctx context.Context) ([]textmatch.Candidate[*rod.Element], error) {
	page, err := s.pages.ActivePage(ctx)
	if err != nil {
		return nil, err
	}
	page = page.Context(ctx).Timeout(s.opts.Timeout)

	tree, err := ExtractSemanticTree(ctx, page)
	if err != nil {
		return nil, err
	}

	nodes := tree.Elements(s.mode)
	candidates := make([]textmatch.Candidate[*rod.Element], 0, len(nodes))
	for _, node := range nodes {
		elem, err := ResolveElement(page, node)
		if err != nil {
			logger.Debug(ctx, "Skip AX node %s: %v", node.AXNodeID, err)
			continue
		}
		candidates = append(candidates, textmatch.Candidate[*rod.Element]{
			Handle: elem,
			Text:   node.Label(),
		})
	}

	logger.Debug(ctx, "Collected %d semantic candidates from %d nodes", len(candidates), len(nodes))
	return candidates, nil
}

// PageURL 当前页面地址
func (s *SemanticSupplier) PageURL(ctx context.Context) string {
	return activePageURL(ctx, s.pages)
}
