package driver

// IndexQueries are run once at startup. Memgraph rejects duplicates, which
// BuildIndices tolerates.
var IndexQueries = []string{
	"CREATE INDEX ON :CampaignNode(id);",
	"CREATE INDEX ON :CampaignNode(campaign_id);",
	"CREATE INDEX ON :CampaignNode(stage);",
	"CREATE INDEX ON :Campaign(id);",
}

const (
	SaveCampaignQuery = `
		MERGE (c:Campaign {id: $campaign_id})
		SET c.product_name = $product_name,
			c.offer = $offer,
			c.project = $project,
			c.exported_at = $exported_at
		RETURN c.id AS id
	`

	SaveCampaignNodeQuery = `
		MERGE (n:CampaignNode {id: $id, campaign_id: $campaign_id})
		SET n.type = $type,
			n.title = $title,
			n.description = $description,
			n.stage = $stage,
			n.x = $x,
			n.y = $y,
			n.parent_id = $parent_id,
			n.is_ghost = $is_ghost,
			n.is_winning = $is_winning,
			n.score = $score,
			n.input_tokens = $input_tokens,
			n.output_tokens = $output_tokens,
			n.image_count = $image_count,
			n.estimated_cost = $estimated_cost,
			n.meta = $meta,
			n.payload = $payload,
			n.exported_at = $exported_at
		RETURN n.id AS id
	`

	SaveCampaignEdgeQuery = `
		MATCH (source:CampaignNode {id: $source_id, campaign_id: $campaign_id})
		MATCH (target:CampaignNode {id: $target_id, campaign_id: $campaign_id})
		MERGE (source)-[e:LEADS_TO {id: $id}]->(target)
		SET e.campaign_id = $campaign_id
		RETURN e.id AS id
	`

	LinkCampaignRootQuery = `
		MATCH (c:Campaign {id: $campaign_id})
		MATCH (n:CampaignNode {id: $root_id, campaign_id: $campaign_id})
		MERGE (c)-[:HAS_ROOT]->(n)
	`

	GetCampaignNodesQuery = `
		MATCH (n:CampaignNode {campaign_id: $campaign_id})
		RETURN n.id AS id, n.type AS type, n.stage AS stage, n.title AS title
		ORDER BY n.id
	`

	GetCampaignEdgesQuery = `
		MATCH (s:CampaignNode {campaign_id: $campaign_id})-[e:LEADS_TO]->(t:CampaignNode {campaign_id: $campaign_id})
		RETURN e.id AS id, s.id AS source_id, t.id AS target_id
	`

	DeleteCampaignQuery = `
		MATCH (n:CampaignNode {campaign_id: $campaign_id})
		DETACH DELETE n
	`
)
