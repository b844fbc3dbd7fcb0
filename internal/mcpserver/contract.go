package mcpserver

// TaxonomyGuide describes how locations and business types relate so LLM
// consumers can pick the right ids before filtering requests.
const TaxonomyGuide = `# Vouch Taxonomy Guide

Requests are filed under one location and one business type. Both come from
curated lists that users can extend.

## Locations

- Three lists form one tree: ` + "`city`" + ` > ` + "`area`" + ` > ` + "`neighbourhood`" + `.
  Requests are filed against the ` + "`area`" + ` list; an area may have a parent area.
- Filtering by a location also returns requests filed under every location
  below it. "London" includes "Hackney" and "Shoreditch".
- Labels read "Name (Parent)", for example "Hackney (London)".

## Business types

- ` + "`category`" + ` items are top level, for example "Food & Drink".
- ` + "`subcategory`" + ` items usually name a parent category and are shown as
  "Restaurant (Food & Drink)". Picking a subcategory also sets its category.
- Filtering by a business type id matches requests whose category OR
  subcategory is that id, so a category id also finds its subcategories' requests.

## Searching

- Matching is a case-insensitive substring of the name or the parent name.
- Results rank exact names first, then names starting with the query, then
  top-level items, then alphabetical order.
- When nothing matches, the result state is ` + "`showing_create_new`" + ` and
  ` + "`create_new`" + ` holds the trimmed query. Items added this way are marked
  ` + "`user_generated`" + `.

## Workflow

1. ` + "`search_locations`" + ` and ` + "`search_business_types`" + ` to find ids.
2. ` + "`find_requests`" + ` with those ids.
3. ` + "`get_request`" + ` with a share token to read the recommendations.
`
